package axi4

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/simlogcheck/simlog"
	"github.com/sarchlab/simlogcheck/verify"
)

// Each helper prints one record the way the LLC model does: the marker line
// followed by one field per line.

func arFire(id, addr string) string {
	return fmt.Sprintf("AR FIRE BEGIN\n  id: %s\n  user: 0x0\n  addr: %s\n"+
		"  len: 7\n  size: 3\n  burst: 1\n  pendingReads: 1\n  maxReads: 8\n",
		id, addr)
}

func arDequeue(id string) string {
	return fmt.Sprintf("ARQUEUE DEQUEUE FIRE BEGIN\n  id: %s\n  len: 7\n"+
		"  arQueueLength: 0\n  maxReads: 8\n", id)
}

func rFire(id, last string) string {
	return fmt.Sprintf("R FIRE BEGIN\n  id: %s\n  user: 0x0\n"+
		"  data: 0x00000000deadbeef00000000cafef00d\n  last: %s\n  resp: 0x0\n"+
		"  pendingReads: 1\n  maxReads: 8\n", id, last)
}

func awFire(id, addr string) string {
	return fmt.Sprintf("AW FIRE BEGIN\n  id: %s\n  user: 0x0\n  addr: %s\n"+
		"  len: 0\n  size: 3\n  burst: 1\n  pendingAWReq: 1\n  pendingWReq: 1\n"+
		"  maxWrites: 8\n", id, addr)
}

func awDequeue(id string) string {
	return fmt.Sprintf("AWQUEUE DEQUEUE FIRE BEGIN\n  id: %s\n"+
		"  awQueueLength: 0\n  maxWrites: 8\n", id)
}

func bFire(id string) string {
	return fmt.Sprintf("B FIRE BEGIN\n  id: %s\n  user: 0x0\n  resp: 0x0\n"+
		"  pendingAWReq: 0\n  pendingWReq: 0\n  maxWrites: 8\n", id)
}

func logOf(records ...string) *simlog.Scanner {
	return simlog.NewStringSource(strings.Join(records, ""))
}

func expectIssue(err error, t verify.IssueType, line int) *verify.Issue {
	issue, ok := verify.AsIssue(err)
	ExpectWithOffset(1, ok).To(BeTrue(), "expected an issue, got %v", err)
	ExpectWithOffset(1, issue.Type).To(Equal(t))
	ExpectWithOffset(1, issue.Line).To(Equal(line))

	return issue
}

var _ = Describe("Checker", func() {
	var checker *Checker

	BeforeEach(func() {
		checker = MakeBuilder().Build("Checker")
	})

	It("should pass a consistent log", func() {
		src := logOf(
			"[info] simulation start\n",
			arFire("0x1", "0x80000000"),
			awFire("0x2", "0x80001000"),
			arDequeue("0x1"),
			awDequeue("0x2"),
			rFire("0x1", "0x0"),
			"unrelated chatter\n",
			rFire("0x1", "0x1"),
			bFire("0x2"),
			arFire("0x1", "0x80000040"),
			arDequeue("0x1"),
			rFire("0x1", "0x1"),
		)

		Expect(checker.NumHooks()).To(BeZero())
		Expect(checker.Check(src)).To(Succeed())
		Expect(checker.Outstanding()).To(Equal(Outstanding{}))
		Expect(checker.Lines()).To(Equal(src.Lines()))
		Expect(checker.EventCount(ReadAddressFire)).To(Equal(2))
		Expect(checker.EventCount(ReadDataFire)).To(Equal(3))
		Expect(checker.EventCount(WriteResponseFire)).To(Equal(1))
	})

	It("should keep transactions that never retire outstanding", func() {
		src := logOf(
			arFire("0x1", "0x100"),
			arFire("0x2", "0x200"),
			arDequeue("0x1"),
			rFire("0x1", "0x0"),
			awFire("0x3", "0x300"),
		)

		Expect(checker.Check(src)).To(Succeed())
		Expect(checker.Outstanding()).To(Equal(Outstanding{
			QueuedReads:   1,
			InFlightReads: 1,
			QueuedWrites:  1,
		}))
		Expect(checker.InFlight(Read, 0x1)).To(BeTrue())
		Expect(checker.InFlight(Read, 0x2)).To(BeFalse())
	})

	It("should stop at a duplicate read ID sent to the backend", func() {
		// Lines 1-9 and 10-18 are AR records, 19-23 and 24-28 dequeues.
		src := logOf(
			arFire("0x4", "0x100"),
			arFire("0x4", "0x200"),
			arDequeue("0x4"),
			arDequeue("0x4"),
			rFire("0x4", "0x1"),
		)

		issue := expectIssue(checker.Check(src), verify.IssueDuplicateID, 28)
		Expect(issue.Error()).To(Equal(
			"LINE 28: FATAL ERROR: sending duplicate read ID to backend"))
		Expect(issue.Details).To(HaveKeyWithValue("in_flight_addr", "0x100"))
		Expect(checker.Lines()).To(Equal(28))
	})

	It("should stop at a duplicate write ID sent to the backend", func() {
		src := logOf(
			awFire("0x9", "0x100"),
			awFire("0x9", "0x200"),
			awDequeue("0x9"),
			awDequeue("0x9"),
		)

		issue := expectIssue(checker.Check(src), verify.IssueDuplicateID, 28)
		Expect(issue.Message).To(Equal("sending duplicate write ID to backend"))
	})

	It("should accept an ID again once it has retired", func() {
		src := logOf(
			awFire("0x9", "0x100"),
			awDequeue("0x9"),
			bFire("0x9"),
			awFire("0x9", "0x200"),
			awDequeue("0x9"),
		)

		Expect(checker.Check(src)).To(Succeed())
		Expect(checker.InFlight(Write, 0x9)).To(BeTrue())
	})

	It("should stop when the dequeued ID is not at the queue front", func() {
		src := logOf(
			arFire("0x1", "0x100"),
			arFire("0x2", "0x200"),
			arDequeue("0x2"),
		)

		issue := expectIssue(checker.Check(src), verify.IssueOrderMismatch, 23)
		Expect(issue.Details).To(HaveKeyWithValue("front_line", 9))
	})

	It("should stop when dequeuing from an empty queue", func() {
		src := logOf(
			arFire("0x1", "0x100"),
			arDequeue("0x1"),
			arDequeue("0x1"),
		)

		expectIssue(checker.Check(src), verify.IssueOrderMismatch, 19)
	})

	It("should treat IDs with leading zeros as the same ID", func() {
		src := logOf(
			arFire("0x01", "0x100"),
			arDequeue("0x1"),
			rFire("0x001", "0x1"),
		)

		Expect(checker.Check(src)).To(Succeed())
	})

	It("should stop at a final read beat for an ID not in flight", func() {
		src := logOf(
			arFire("0x1", "0x100"),
			rFire("0x1", "0x1"),
		)

		expectIssue(checker.Check(src), verify.IssueUnknownID, 17)
	})

	It("should stop at a write response for an ID not in flight", func() {
		expectIssue(checker.Check(logOf(bFire("0x7"))), verify.IssueUnknownID, 7)
	})

	It("should ignore non-final read beats", func() {
		Expect(checker.Check(logOf(rFire("0x3", "0x0")))).To(Succeed())
	})

	It("should report a malformed field line", func() {
		src := simlog.NewStringSource(
			"AR FIRE BEGIN\n  id: 0x1\n  user: 0x0\n  address 0x100\n")

		issue := expectIssue(checker.Check(src), verify.IssueMalformed, 4)
		Expect(issue.Message).To(ContainSubstring(`"addr"`))
	})

	It("should report a counter too large to hold", func() {
		src := simlog.NewStringSource(strings.Replace(
			arFire("0x1", "0x100"), "len: 7", "len: 18446744073709551615", 1))

		issue := expectIssue(checker.Check(src), verify.IssueMalformed, 5)
		Expect(issue.Message).To(ContainSubstring(`"len"`))
	})

	It("should report a record cut off by the end of the log", func() {
		src := simlog.NewStringSource("B FIRE BEGIN\n  id: 0x1\n  user: 0x0\n")

		issue := expectIssue(checker.Check(src), verify.IssueTruncated, 3)
		Expect(issue.Message).To(ContainSubstring(`"resp"`))
	})

	It("should report a full issue queue", func() {
		checker = MakeBuilder().WithQueueCapacity(1).Build("Checker")
		src := logOf(
			arFire("0x1", "0x100"),
			arFire("0x2", "0x200"),
		)

		expectIssue(checker.Check(src), verify.IssueQueueOverflow, 18)
	})

	It("should summarize event and outstanding counts", func() {
		Expect(checker.Check(logOf(arFire("0x1", "0x100")))).To(Succeed())

		report := &verify.Report{}
		checker.Summarize(report)

		Expect(report.Counters).To(ContainElement(
			verify.Counter{Name: "ARFire events", Value: 1}))
		Expect(report.Counters).To(ContainElement(
			verify.Counter{Name: "queued reads", Value: 1}))
	})

	It("should panic on an invalid name", func() {
		Expect(func() { MakeBuilder().Build("bad_name") }).To(Panic())
	})
})

var _ = Describe("Checker hooks", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		checker  *Checker
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
		checker = MakeBuilder().WithHook(hook).Build("Checker")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke hooks for every transaction step", func() {
		var positions []*sim.HookPos
		var txns []Txn

		hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
			Expect(ctx.Domain).To(BeIdenticalTo(checker))
			positions = append(positions, ctx.Pos)
			txns = append(txns, ctx.Item.(Txn))
		}).Times(3)
		Expect(checker.NumHooks()).To(Equal(1))

		src := logOf(
			arFire("0x5", "0x140"),
			arDequeue("0x5"),
			rFire("0x5", "0x1"),
		)
		Expect(checker.Check(src)).To(Succeed())

		Expect(positions).To(Equal([]*sim.HookPos{
			HookPosTxnQueued, HookPosTxnSent, HookPosTxnCompleted,
		}))
		Expect(txns[0]).To(Equal(Txn{Channel: Read, ID: 0x5, Addr: 0x140, Line: 9}))
		Expect(txns[1].Line).To(Equal(14))
		Expect(txns[2].Addr).To(Equal(uint64(0x140)))
	})
})

var _ = Describe("TraceHook", func() {
	It("should log transactions at trace level", func() {
		buf := new(bytes.Buffer)
		hook := NewTraceHook(verify.NewLogger(buf, "test", true))

		hook.Func(sim.HookCtx{
			Pos:  HookPosTxnSent,
			Item: Txn{Channel: Write, ID: 0x2a, Addr: 0x1000, Line: 12},
		})

		Expect(buf.String()).To(ContainSubstring("level=TRACE"))
		Expect(buf.String()).To(ContainSubstring(`msg="Txn Sent"`))
		Expect(buf.String()).To(ContainSubstring("id=0x2a"))
		Expect(buf.String()).To(ContainSubstring("line=12"))
	})

	It("should stay quiet unless verbose", func() {
		buf := new(bytes.Buffer)
		hook := NewTraceHook(verify.NewLogger(buf, "test", false))

		hook.Func(sim.HookCtx{Pos: HookPosTxnSent, Item: Txn{}})

		Expect(buf.Len()).To(BeZero())
	})
})

var _ = Describe("Event formats", func() {
	It("should not mistake an AR marker for an R marker", func() {
		f, ok := matchMarker("AR FIRE BEGIN")
		Expect(ok).To(BeTrue())
		Expect(f.kind).To(Equal(ReadAddressFire))

		f, ok = matchMarker("[LLC] R FIRE BEGIN")
		Expect(ok).To(BeTrue())
		Expect(f.kind).To(Equal(ReadDataFire))

		f, ok = matchMarker("ARQUEUE DEQUEUE FIRE BEGIN")
		Expect(ok).To(BeTrue())
		Expect(f.kind).To(Equal(ReadQueueDequeueFire))

		_, ok = matchMarker("AR FIRE END")
		Expect(ok).To(BeFalse())
	})

	It("should describe each kind", func() {
		Expect(WriteResponseFire.String()).To(Equal("BFire"))
		Expect(WriteResponseFire.Marker()).To(Equal("B FIRE BEGIN"))
		Expect(ReadQueueDequeueFire.Schema().Labels()).To(Equal(
			[]string{"id", "len", "arQueueLength", "maxReads"}))
		Expect(EventKind(42).String()).To(Equal("EventKind(42)"))
	})

	It("should flag only the last read beat as final", func() {
		Expect(Event{Kind: ReadDataFire, Last: 1}.IsFinalBeat()).To(BeTrue())
		Expect(Event{Kind: ReadDataFire, Last: 0}.IsFinalBeat()).To(BeFalse())
		Expect(Event{Kind: WriteResponseFire, Last: 1}.IsFinalBeat()).To(BeFalse())
	})
})
