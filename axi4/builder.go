package axi4

import (
	"github.com/sarchlab/akita/v4/sim"
)

// DefaultQueueCapacity bounds each issue queue. The LLC model never holds
// anywhere near this many transactions, so hitting it means IDs are queued
// and never dequeued.
const DefaultQueueCapacity = 65536

// Builder can build checkers.
type Builder struct {
	queueCapacity int
	hooks         []sim.Hook
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		queueCapacity: DefaultQueueCapacity,
	}
}

// WithQueueCapacity sets the capacity of the read and write issue queues.
func (b Builder) WithQueueCapacity(n int) Builder {
	b.queueCapacity = n
	return b
}

// WithHook registers a hook on the built checker.
func (b Builder) WithHook(h sim.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// Build creates a checker. The name must follow the akita naming
// convention (dot-separated CamelCase), otherwise Build panics.
func (b Builder) Build(name string) *Checker {
	sim.NameMustBeValid(name)

	c := &Checker{
		name: name,
		reads: channelState{
			channel: Read,
			queue:   sim.NewBuffer(name+".ReadIssueQueue", b.queueCapacity),
			sent:    make(map[uint64]uint64),
		},
		writes: channelState{
			channel: Write,
			queue:   sim.NewBuffer(name+".WriteIssueQueue", b.queueCapacity),
			sent:    make(map[uint64]uint64),
		},
	}

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}
