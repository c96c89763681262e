package axi4

import (
	"fmt"
	"regexp"

	"github.com/sarchlab/simlogcheck/simlog"
)

// EventKind identifies one of the records the LLC model prints.
type EventKind int

const (
	ReadAddressFire EventKind = iota
	ReadQueueDequeueFire
	ReadDataFire
	WriteAddressFire
	WriteQueueDequeueFire
	WriteResponseFire
	numEventKinds
)

// Event is a decoded record. Only the fields of the record's kind are set.
type Event struct {
	Kind       EventKind
	MarkerLine int // line holding the marker
	Line       int // last line of the record

	ID   uint64
	User uint64
	Addr uint64
	Last uint64
	Resp uint64
	Data string // data beats can be wider than 64 bits

	Len         int
	Size        int
	Burst       int
	QueueLength int
	Pending     int // pendingReads, or pendingAWReq on the write side
	PendingW    int // pendingWReq
	Max         int // maxReads or maxWrites
}

// IsFinalBeat reports whether a read data event carries the last beat of
// its burst.
func (e Event) IsFinalBeat() bool {
	return e.Kind == ReadDataFire && e.Last == 1
}

type eventFormat struct {
	kind   EventKind
	name   string
	marker string
	re     *regexp.Regexp
	schema simlog.Schema
}

func newEventFormat(
	kind EventKind,
	name, marker string,
	fields ...simlog.FieldSpec,
) eventFormat {
	return eventFormat{
		kind:   kind,
		name:   name,
		marker: marker,
		re: regexp.MustCompile(
			`(?:^|[^A-Za-z0-9_])` + regexp.QuoteMeta(marker)),
		schema: simlog.NewSchema(fields...),
	}
}

// Dequeue markers come first so that a marker never shadows a longer one.
var eventFormats = []eventFormat{
	newEventFormat(ReadQueueDequeueFire, "ARQueueDequeueFire",
		"ARQUEUE DEQUEUE FIRE BEGIN",
		simlog.HexField("id"),
		simlog.DecField("len"),
		simlog.DecField("arQueueLength"),
		simlog.DecField("maxReads"),
	),
	newEventFormat(WriteQueueDequeueFire, "AWQueueDequeueFire",
		"AWQUEUE DEQUEUE FIRE BEGIN",
		simlog.HexField("id"),
		simlog.DecField("awQueueLength"),
		simlog.DecField("maxWrites"),
	),
	newEventFormat(ReadAddressFire, "ARFire",
		"AR FIRE BEGIN",
		simlog.HexField("id"),
		simlog.HexField("user"),
		simlog.HexField("addr"),
		simlog.DecField("len"),
		simlog.DecField("size"),
		simlog.DecField("burst"),
		simlog.DecField("pendingReads"),
		simlog.DecField("maxReads"),
	),
	newEventFormat(WriteAddressFire, "AWFire",
		"AW FIRE BEGIN",
		simlog.HexField("id"),
		simlog.HexField("user"),
		simlog.HexField("addr"),
		simlog.DecField("len"),
		simlog.DecField("size"),
		simlog.DecField("burst"),
		simlog.DecField("pendingAWReq"),
		simlog.DecField("pendingWReq"),
		simlog.DecField("maxWrites"),
	),
	newEventFormat(ReadDataFire, "RFire",
		"R FIRE BEGIN",
		simlog.HexField("id"),
		simlog.HexField("user"),
		simlog.HexField("data"),
		simlog.HexField("last"),
		simlog.HexField("resp"),
		simlog.DecField("pendingReads"),
		simlog.DecField("maxReads"),
	),
	newEventFormat(WriteResponseFire, "BFire",
		"B FIRE BEGIN",
		simlog.HexField("id"),
		simlog.HexField("user"),
		simlog.HexField("resp"),
		simlog.DecField("pendingAWReq"),
		simlog.DecField("pendingWReq"),
		simlog.DecField("maxWrites"),
	),
}

func (k EventKind) String() string {
	for _, f := range eventFormats {
		if f.kind == k {
			return f.name
		}
	}

	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Marker returns the text that opens a record of this kind.
func (k EventKind) Marker() string {
	for _, f := range eventFormats {
		if f.kind == k {
			return f.marker
		}
	}

	return ""
}

// Schema returns the field lines that follow the marker.
func (k EventKind) Schema() simlog.Schema {
	for _, f := range eventFormats {
		if f.kind == k {
			return f.schema
		}
	}

	return nil
}

func matchMarker(text string) (eventFormat, bool) {
	for _, f := range eventFormats {
		if f.re.MatchString(text) {
			return f, true
		}
	}

	return eventFormat{}, false
}

// fieldDecoder keeps the first failure so that a record decodes in one
// straight run.
type fieldDecoder struct {
	rec simlog.Record
	err error
}

func (d *fieldDecoder) value(label string) uint64 {
	if d.err != nil {
		return 0
	}

	v, err := d.rec.Uint(label)
	if err != nil {
		d.err = err
	}

	return v
}

func (d *fieldDecoder) count(label string) int {
	if d.err != nil {
		return 0
	}

	v, err := d.rec.Int(label)
	if err != nil {
		d.err = err
	}

	return v
}

func decodeEvent(kind EventKind, rec simlog.Record) (Event, error) {
	d := &fieldDecoder{rec: rec}
	ev := Event{
		Kind:       kind,
		MarkerLine: rec.Marker.Num,
		Line:       rec.Last,
		ID:         d.value("id"),
	}

	switch kind {
	case ReadAddressFire:
		ev.User = d.value("user")
		ev.Addr = d.value("addr")
		ev.Len = d.count("len")
		ev.Size = d.count("size")
		ev.Burst = d.count("burst")
		ev.Pending = d.count("pendingReads")
		ev.Max = d.count("maxReads")
	case ReadQueueDequeueFire:
		ev.Len = d.count("len")
		ev.QueueLength = d.count("arQueueLength")
		ev.Max = d.count("maxReads")
	case ReadDataFire:
		ev.User = d.value("user")
		ev.Data = rec.Raw("data")
		ev.Last = d.value("last")
		ev.Resp = d.value("resp")
		ev.Pending = d.count("pendingReads")
		ev.Max = d.count("maxReads")
	case WriteAddressFire:
		ev.User = d.value("user")
		ev.Addr = d.value("addr")
		ev.Len = d.count("len")
		ev.Size = d.count("size")
		ev.Burst = d.count("burst")
		ev.Pending = d.count("pendingAWReq")
		ev.PendingW = d.count("pendingWReq")
		ev.Max = d.count("maxWrites")
	case WriteQueueDequeueFire:
		ev.QueueLength = d.count("awQueueLength")
		ev.Max = d.count("maxWrites")
	case WriteResponseFire:
		ev.User = d.value("user")
		ev.Resp = d.value("resp")
		ev.Pending = d.count("pendingAWReq")
		ev.PendingW = d.count("pendingWReq")
		ev.Max = d.count("maxWrites")
	default:
		return ev, fmt.Errorf("unknown event kind %d", int(kind))
	}

	return ev, d.err
}
