// Package verify provides the diagnostic model shared by the simulator log
// checkers.
//
// Two offline tools are built on top of it:
//
// 1. AXI4 protocol checker (package axi4): follows read and write
// transactions through the LLC model's issue queues and the backend.
//   - DUPLICATE_ID: an ID is sent to the backend twice before it completes
//   - ORDER_MISMATCH: the dequeued ID is not the one at the queue front
//   - UNKNOWN_ID: a completion names an ID that is not in flight
//
// 2. Mempress leak tracker (package mempress): reference counts the tags and
// addresses the accelerator hands out and takes back.
//   - LEDGER: a release without a matching allocation
//
// Both tools stop at the first Issue. An Issue carries the line it was
// detected on and renders as the one-line diagnostic the tools print:
//
//	LINE 42: FATAL ERROR: sending duplicate read ID to backend
//
// # Usage Example
//
//	f, _ := simlog.Open("metasim_stderr.out")
//	defer f.Close()
//
//	checker := axi4.MakeBuilder().Build("Checker")
//	if err := checker.Check(f); err != nil {
//	    var issue *verify.Issue
//	    if errors.As(err, &issue) {
//	        fmt.Println(issue)
//	    }
//	}
package verify

import (
	"errors"
	"fmt"

	"github.com/sarchlab/simlogcheck/simlog"
)

// IssueType categorizes fatal issues
type IssueType string

const (
	IssueMalformed     IssueType = "MALFORMED"      // Field line does not match its schema
	IssueTruncated     IssueType = "TRUNCATED"      // Input ends inside a record
	IssueDuplicateID   IssueType = "DUPLICATE_ID"   // ID sent to backend twice
	IssueOrderMismatch IssueType = "ORDER_MISMATCH" // Dequeue does not match queue front
	IssueUnknownID     IssueType = "UNKNOWN_ID"     // Completion for an ID not in flight
	IssueQueueOverflow IssueType = "QUEUE_OVERFLOW" // Issue queue at capacity
	IssueLedger        IssueType = "LEDGER"         // Release without allocation
)

// Issue represents a single fatal inconsistency found in a log
type Issue struct {
	Type    IssueType              // What went wrong
	Line    int                    // Line the issue was detected on
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}

// NewIssue creates an issue with a formatted message.
func NewIssue(t IssueType, line int, format string, args ...interface{}) *Issue {
	return &Issue{
		Type:    t,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

// With attaches a detail to the issue and returns it.
func (i *Issue) With(key string, value interface{}) *Issue {
	if i.Details == nil {
		i.Details = make(map[string]interface{})
	}

	i.Details[key] = value

	return i
}

func (i *Issue) Error() string {
	return fmt.Sprintf("LINE %d: FATAL ERROR: %s", i.Line, i.Message)
}

// FromRecordError converts record reading failures into issues. Other
// errors are returned unchanged.
func FromRecordError(err error) error {
	var malformed *simlog.MalformedError
	if errors.As(err, &malformed) {
		return NewIssue(IssueMalformed, malformed.Line,
			"malformed record: expected field %q", malformed.Label).
			With("text", malformed.Text)
	}

	var truncated *simlog.TruncatedError
	if errors.As(err, &truncated) {
		return NewIssue(IssueTruncated, truncated.Line,
			"truncated record: missing field %q", truncated.Label)
	}

	return err
}

// AsIssue reports whether err is, or wraps, an Issue.
func AsIssue(err error) (*Issue, bool) {
	var issue *Issue
	if errors.As(err, &issue) {
		return issue, true
	}

	return nil, false
}

// Process exit statuses of the tools.
const (
	ExitPassed = 0 // Whole log scanned, nothing found
	ExitIssue  = 1 // A fatal issue was found
	ExitError  = 2 // The log could not be read
)

// ExitCode maps the result of a scan to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitPassed
	}

	if _, ok := AsIssue(err); ok {
		return ExitIssue
	}

	return ExitError
}
