// Package axi4 checks the AXI4 read and write channel prints of the LLC
// model for protocol consistency.
//
// Every address handshake (AR/AW) queues the transaction in the model. The
// model later dequeues it and sends it to the memory backend, and the
// response (last R beat, or B) retires it. The checker follows each
// transaction through these steps and stops at the first inconsistency.
package axi4

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/simlogcheck/simlog"
	"github.com/sarchlab/simlogcheck/verify"
)

// Channel tells reads from writes.
type Channel string

const (
	Read  Channel = "read"
	Write Channel = "write"
)

// Txn is a transaction held by the checker.
type Txn struct {
	Channel Channel
	ID      uint64
	Addr    uint64
	Line    int
}

// Outstanding counts the transactions that have not retired.
type Outstanding struct {
	QueuedReads    int
	QueuedWrites   int
	InFlightReads  int
	InFlightWrites int
}

type channelState struct {
	channel Channel
	queue   sim.Buffer
	sent    map[uint64]uint64 // ID -> address
}

// Checker follows transactions through the LLC model's issue queues and the
// backend. A Checker is single use: it keeps the state of one log.
type Checker struct {
	sim.HookableBase

	name   string
	reads  channelState
	writes channelState

	lines  int
	counts [numEventKinds]int
}

// Name returns the name of the checker.
func (c *Checker) Name() string {
	return c.name
}

// Check scans src once. It returns the first fatal *verify.Issue, an error
// if reading failed, or nil if the whole log is consistent.
func (c *Checker) Check(src simlog.Source) error {
	for {
		line, ok := src.Next()
		if !ok {
			break
		}

		c.lines = line.Num

		format, ok := matchMarker(line.Text)
		if !ok {
			continue
		}

		rec, err := simlog.ReadRecord(src, line, format.schema)
		c.lines = rec.Last

		if err != nil {
			return verify.FromRecordError(err)
		}

		ev, err := decodeEvent(format.kind, rec)
		if err != nil {
			return verify.FromRecordError(err)
		}

		if err := c.Handle(ev); err != nil {
			return err
		}
	}

	if err := src.Err(); err != nil {
		return fmt.Errorf("read log after line %d: %w", c.lines, err)
	}

	return nil
}

// Handle applies one event to the checker state.
func (c *Checker) Handle(ev Event) error {
	if ev.Kind >= 0 && ev.Kind < numEventKinds {
		c.counts[ev.Kind]++
	}

	switch ev.Kind {
	case ReadAddressFire:
		return c.enqueue(&c.reads, ev)
	case ReadQueueDequeueFire:
		return c.dequeue(&c.reads, ev)
	case ReadDataFire:
		if !ev.IsFinalBeat() {
			return nil
		}
		return c.complete(&c.reads, ev)
	case WriteAddressFire:
		return c.enqueue(&c.writes, ev)
	case WriteQueueDequeueFire:
		return c.dequeue(&c.writes, ev)
	case WriteResponseFire:
		return c.complete(&c.writes, ev)
	default:
		return fmt.Errorf("unknown event kind %d", int(ev.Kind))
	}
}

func (c *Checker) enqueue(ch *channelState, ev Event) error {
	if !ch.queue.CanPush() {
		return verify.NewIssue(verify.IssueQueueOverflow, ev.Line,
			"%s issue queue is full (%d entries)",
			ch.channel, ch.queue.Capacity()).
			With("id", hex(ev.ID))
	}

	txn := Txn{Channel: ch.channel, ID: ev.ID, Addr: ev.Addr, Line: ev.Line}
	ch.queue.Push(txn)
	c.invoke(HookPosTxnQueued, txn)

	return nil
}

func (c *Checker) dequeue(ch *channelState, ev Event) error {
	item := ch.queue.Pop()
	if item == nil {
		return verify.NewIssue(verify.IssueOrderMismatch, ev.Line,
			"dequeued %s ID %s from an empty issue queue",
			ch.channel, hex(ev.ID))
	}

	txn := item.(Txn)
	if txn.ID != ev.ID {
		return verify.NewIssue(verify.IssueOrderMismatch, ev.Line,
			"dequeued %s ID %s but the queue front holds ID %s",
			ch.channel, hex(ev.ID), hex(txn.ID)).
			With("front_line", txn.Line).
			With("front_addr", hex(txn.Addr))
	}

	if prev, dup := ch.sent[txn.ID]; dup {
		return verify.NewIssue(verify.IssueDuplicateID, ev.Line,
			"sending duplicate %s ID to backend", ch.channel).
			With("id", hex(txn.ID)).
			With("addr", hex(txn.Addr)).
			With("in_flight_addr", hex(prev))
	}

	ch.sent[txn.ID] = txn.Addr
	txn.Line = ev.Line
	c.invoke(HookPosTxnSent, txn)

	return nil
}

func (c *Checker) complete(ch *channelState, ev Event) error {
	addr, ok := ch.sent[ev.ID]
	if !ok {
		return verify.NewIssue(verify.IssueUnknownID, ev.Line,
			"%s response for ID %s that is not in flight",
			ch.channel, hex(ev.ID))
	}

	delete(ch.sent, ev.ID)
	c.invoke(HookPosTxnCompleted,
		Txn{Channel: ch.channel, ID: ev.ID, Addr: addr, Line: ev.Line})

	return nil
}

func (c *Checker) invoke(pos *sim.HookPos, txn Txn) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   txn,
	})
}

// Outstanding returns the transactions still queued or in flight.
func (c *Checker) Outstanding() Outstanding {
	return Outstanding{
		QueuedReads:    c.reads.queue.Size(),
		QueuedWrites:   c.writes.queue.Size(),
		InFlightReads:  len(c.reads.sent),
		InFlightWrites: len(c.writes.sent),
	}
}

// InFlight reports whether the ID has been sent to the backend and has not
// retired.
func (c *Checker) InFlight(ch Channel, id uint64) bool {
	var ok bool

	switch ch {
	case Read:
		_, ok = c.reads.sent[id]
	case Write:
		_, ok = c.writes.sent[id]
	}

	return ok
}

// EventCount returns how many events of a kind were handled.
func (c *Checker) EventCount(kind EventKind) int {
	if kind < 0 || kind >= numEventKinds {
		return 0
	}

	return c.counts[kind]
}

// Lines returns the number of the last line consumed.
func (c *Checker) Lines() int {
	return c.lines
}

// Summarize adds the checker's counters to a report.
func (c *Checker) Summarize(r *verify.Report) {
	for k := EventKind(0); k < numEventKinds; k++ {
		r.AddCounter(k.String()+" events", c.counts[k])
	}

	o := c.Outstanding()
	r.AddCounter("queued reads", o.QueuedReads)
	r.AddCounter("in-flight reads", o.InFlightReads)
	r.AddCounter("queued writes", o.QueuedWrites)
	r.AddCounter("in-flight writes", o.InFlightWrites)
}

func hex(v uint64) string {
	return fmt.Sprintf("%#x", v)
}
