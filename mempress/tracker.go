// Package mempress tracks the tags and addresses that the mempress
// accelerator allocates and releases, as printed in its simulation log.
package mempress

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/simlogcheck/simlog"
	"github.com/sarchlab/simlogcheck/verify"
)

// EventKind identifies a tracked log line.
type EventKind int

const (
	SendTag EventKind = iota
	GetTag
	AddBackTag
	AddressFire
	AddressRelease
	numEventKinds
)

var eventNames = [numEventKinds]string{
	SendTag:        "sendtag",
	GetTag:         "gettag",
	AddBackTag:     "add back tag",
	AddressFire:    "address fire",
	AddressRelease: "address release",
}

func (k EventKind) String() string {
	if k < 0 || k >= numEventKinds {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}

	return eventNames[k]
}

type linePattern struct {
	kind EventKind
	re   *regexp.Regexp
}

// At most one pattern applies to a line; the first match wins.
var linePatterns = []linePattern{
	{SendTag, regexp.MustCompile(`sendtag:\s*(\d+)`)},
	{GetTag, regexp.MustCompile(`gettag:\s*(\d+)`)},
	{AddBackTag, regexp.MustCompile(`add back tag\s*(\d+)`)},
	{AddressFire, regexp.MustCompile(`AR FIRE: adding address 0x([0-9a-fA-F]+)`)},
	{AddressRelease, regexp.MustCompile(`releasing address 0x([0-9a-fA-F]+)`)},
}

// Event is a recognized line with its key.
type Event struct {
	Kind EventKind
	Line int
	Key  string
}

// Match recognizes the event on a line, if any.
func Match(line simlog.Line) (Event, bool) {
	for _, p := range linePatterns {
		m := p.re.FindStringSubmatch(line.Text)
		if m == nil {
			continue
		}

		return Event{Kind: p.kind, Line: line.Num, Key: m[1]}, true
	}

	return Event{}, false
}

// Tracker keeps the tag and address ledgers of one log.
type Tracker struct {
	tags      *Ledger[int]
	addresses *Ledger[string]

	lines  int
	counts [numEventKinds]int
}

// NewTracker creates a tracker with empty ledgers.
func NewTracker() *Tracker {
	return &Tracker{
		tags:      NewLedger[int](false),
		addresses: NewLedger[string](true),
	}
}

// Tags returns the tag ledger.
func (t *Tracker) Tags() *Ledger[int] {
	return t.tags
}

// Addresses returns the address ledger. Keys are the hex digits of the
// address without the 0x prefix.
func (t *Tracker) Addresses() *Ledger[string] {
	return t.addresses
}

// Track scans src once and stops at the first ledger inconsistency, which
// is returned as a *verify.Issue.
func (t *Tracker) Track(src simlog.Source) error {
	for {
		line, ok := src.Next()
		if !ok {
			break
		}

		t.lines = line.Num

		if err := t.Handle(line); err != nil {
			return err
		}
	}

	if err := src.Err(); err != nil {
		return fmt.Errorf("read log after line %d: %w", t.lines, err)
	}

	return nil
}

// Handle applies the event on line, if there is one.
func (t *Tracker) Handle(line simlog.Line) error {
	ev, ok := Match(line)
	if !ok {
		return nil
	}

	return t.Apply(ev)
}

// Apply updates the ledgers with one event.
func (t *Tracker) Apply(ev Event) error {
	if ev.Kind >= 0 && ev.Kind < numEventKinds {
		t.counts[ev.Kind]++
	}

	switch ev.Kind {
	case SendTag:
		tag, err := t.parseTag(ev)
		if err != nil {
			return err
		}
		t.tags.Acquire(tag)
	case GetTag:
	case AddBackTag:
		tag, err := t.parseTag(ev)
		if err != nil {
			return err
		}
		if _, err := t.tags.Release(tag); err != nil {
			return ledgerIssue(ev, "tag "+ev.Key, err)
		}
	case AddressFire:
		t.addresses.Acquire(ev.Key)
	case AddressRelease:
		if _, err := t.addresses.Release(ev.Key); err != nil {
			return ledgerIssue(ev, "address 0x"+ev.Key, err)
		}
	default:
		return fmt.Errorf("unknown event kind %d", int(ev.Kind))
	}

	return nil
}

func (t *Tracker) parseTag(ev Event) (int, error) {
	tag, err := strconv.Atoi(ev.Key)
	if err != nil {
		return 0, verify.NewIssue(verify.IssueMalformed, ev.Line,
			"%s: tag %q is not a valid number", ev.Kind, ev.Key)
	}

	return tag, nil
}

func ledgerIssue(ev Event, what string, err error) *verify.Issue {
	reason := "was never allocated"
	if errors.Is(err, ErrOverRelease) {
		reason = "has no outstanding allocation"
	}

	return verify.NewIssue(verify.IssueLedger, ev.Line,
		"%s released by %s but %s", what, ev.Kind, reason)
}

// EventCount returns how many events of a kind were seen.
func (t *Tracker) EventCount(kind EventKind) int {
	if kind < 0 || kind >= numEventKinds {
		return 0
	}

	return t.counts[kind]
}

// Lines returns the number of lines scanned.
func (t *Tracker) Lines() int {
	return t.lines
}

// WriteLedgers prints every tag entry followed by every address entry as
// "key -> count".
func (t *Tracker) WriteLedgers(w io.Writer) error {
	var b strings.Builder

	for _, e := range t.tags.Entries() {
		fmt.Fprintf(&b, "%d -> %d\n", e.Key, e.Count)
	}

	for _, e := range t.addresses.Entries() {
		fmt.Fprintf(&b, "%s -> %d\n", e.Key, e.Count)
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// Summarize adds the tracker's counters to a report.
func (t *Tracker) Summarize(r *verify.Report) {
	for k := EventKind(0); k < numEventKinds; k++ {
		r.AddCounter(k.String()+" events", t.counts[k])
	}

	r.AddCounter("tags tracked", t.tags.Len())
	r.AddCounter("tags outstanding", t.tags.Outstanding())
	r.AddCounter("addresses outstanding", t.addresses.Outstanding())
}
