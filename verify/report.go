package verify

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Counter is a named value shown in a report.
type Counter struct {
	Name  string
	Value int
}

// Report summarizes one scan of a log
type Report struct {
	Tool        string
	Path        string
	Compression string
	Lines       int
	Issue       *Issue
	Err         error
	Counters    []Counter
}

// AddCounter appends a counter to the report.
func (r *Report) AddCounter(name string, value int) {
	r.Counters = append(r.Counters, Counter{Name: name, Value: value})
}

// Passed reports whether the scan finished without an issue or error.
func (r *Report) Passed() bool {
	return r.Issue == nil && r.Err == nil
}

// SetResult records the outcome of a scan.
func (r *Report) SetResult(err error) {
	if err == nil {
		return
	}

	if issue, ok := AsIssue(err); ok {
		r.Issue = issue
		return
	}

	r.Err = err
}

// WriteReport writes a formatted report to a writer
func (r *Report) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "%s REPORT\n", strings.ToUpper(r.Tool))
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Log: %s (compression: %s)\n", r.Path, r.Compression)
	fmt.Fprintf(w, "Lines scanned: %d\n\n", r.Lines)

	if len(r.Counters) > 0 {
		t := table.NewWriter()
		t.SetTitle("Counters")
		t.AppendHeader(table.Row{"Name", "Value"})

		for _, c := range r.Counters {
			t.AppendRow(table.Row{c.Name, c.Value})
		}

		fmt.Fprintln(w, t.Render())
		fmt.Fprintln(w)
	}

	switch {
	case r.Issue != nil:
		fmt.Fprintf(w, "Result: FAILED [%s] at line %d: %s\n",
			r.Issue.Type, r.Issue.Line, r.Issue.Message)
		keys := make([]string, 0, len(r.Issue.Details))
		for k := range r.Issue.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, r.Issue.Details[k])
		}
	case r.Err != nil:
		fmt.Fprintf(w, "Result: ERROR: %v\n", r.Err)
	default:
		fmt.Fprintln(w, "Result: PASSED")
	}

	fmt.Fprintln(w, separator)
}
