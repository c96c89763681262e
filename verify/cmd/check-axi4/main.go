// Command check-axi4 verifies the AXI4 channel prints of an LLC model
// simulation log.
//
//	check-axi4 [--summary] [--verbose] metasim_stderr.out
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/simlogcheck/axi4"
	"github.com/sarchlab/simlogcheck/simlog"
	"github.com/sarchlab/simlogcheck/verify"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type options struct {
	verbose       bool
	summary       bool
	queueCapacity int
}

var opts = options{queueCapacity: axi4.DefaultQueueCapacity}

func (o options) validate() error {
	if o.queueCapacity < 1 {
		return fmt.Errorf("--queue-capacity must be at least 1, got %d",
			o.queueCapacity)
	}

	return nil
}

var rootCmd = &cobra.Command{
	Use:   "check-axi4 <log>",
	Short: "Check the AXI4 read/write channel prints of a simulation log.",
	Long: "check-axi4 follows every AR/AW transaction through the LLC " +
		"model's issue queues and the memory backend, and stops at the " +
		"first duplicate ID, queue order mismatch, or unknown response.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return opts.validate()
	},
	Run: func(cmd *cobra.Command, args []string) {
		logger := verify.NewLogger(os.Stderr, "check-axi4", opts.verbose)

		code, report := run(args[0], opts, os.Stdout, logger)
		if opts.summary {
			atexit.Register(func() { report.WriteReport(os.Stderr) })
		}

		atexit.Exit(code)
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log every transaction step at trace level")
	rootCmd.Flags().BoolVar(&opts.summary, "summary", false,
		"print a summary table to stderr when done")
	rootCmd.Flags().IntVar(&opts.queueCapacity, "queue-capacity",
		axi4.DefaultQueueCapacity,
		"maximum number of queued transactions per channel")
}

func run(
	path string,
	opts options,
	stdout io.Writer,
	logger *slog.Logger,
) (int, *verify.Report) {
	report := &verify.Report{Tool: "AXI4 check", Path: path}

	f, err := simlog.Open(path)
	if err != nil {
		logger.Error("cannot open log", "path", path, "err", err)
		report.SetResult(err)
		return verify.ExitError, report
	}
	defer f.Close()

	report.Compression = f.Compression

	checker := axi4.MakeBuilder().
		WithQueueCapacity(opts.queueCapacity).
		WithHook(axi4.NewTraceHook(logger)).
		Build("AXI4Checker")

	err = checker.Check(f)
	report.Lines = checker.Lines()
	report.SetResult(err)
	checker.Summarize(report)

	if issue, ok := verify.AsIssue(err); ok {
		fmt.Fprintln(stdout, issue)
	} else if err != nil {
		logger.Error("scan aborted", "path", path, "err", err)
	}

	o := checker.Outstanding()
	logger.Debug("scan finished",
		"lines", checker.Lines(),
		"queued_reads", o.QueuedReads,
		"in_flight_reads", o.InFlightReads,
		"queued_writes", o.QueuedWrites,
		"in_flight_writes", o.InFlightWrites,
	)

	return verify.ExitCode(err), report
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(verify.ExitError)
	}
}
