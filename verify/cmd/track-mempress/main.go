// Command track-mempress reports the tags and addresses the mempress
// accelerator left outstanding at the end of a simulation log.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/simlogcheck/mempress"
	"github.com/sarchlab/simlogcheck/simlog"
	"github.com/sarchlab/simlogcheck/verify"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type options struct {
	verbose bool
	summary bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "track-mempress <log>",
	Short: "Count outstanding mempress tags and addresses in a simulation log.",
	Long: "track-mempress keeps a reference count per tag (sendtag / add " +
		"back tag) and per address (AR FIRE / releasing address) and " +
		"prints every ledger entry as \"key -> count\".",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		logger := verify.NewLogger(os.Stderr, "track-mempress", opts.verbose)

		code, report := run(args[0], os.Stdout, logger)
		if opts.summary {
			atexit.Register(func() { report.WriteReport(os.Stderr) })
		}

		atexit.Exit(code)
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.Flags().BoolVar(&opts.summary, "summary", false,
		"print a summary table to stderr when done")
}

func run(path string, stdout io.Writer, logger *slog.Logger) (int, *verify.Report) {
	report := &verify.Report{Tool: "Mempress tracking", Path: path}

	f, err := simlog.Open(path)
	if err != nil {
		logger.Error("cannot open log", "path", path, "err", err)
		report.SetResult(err)
		return verify.ExitError, report
	}
	defer f.Close()

	report.Compression = f.Compression

	tracker := mempress.NewTracker()
	err = tracker.Track(f)
	report.Lines = tracker.Lines()
	report.SetResult(err)
	tracker.Summarize(report)

	if issue, ok := verify.AsIssue(err); ok {
		fmt.Fprintf(stdout, "ERROR: %s (line %d)\n", issue.Message, issue.Line)
		return verify.ExitIssue, report
	}

	if err != nil {
		logger.Error("scan aborted", "path", path, "err", err)
		return verify.ExitError, report
	}

	logger.Debug("scan finished",
		"lines", tracker.Lines(),
		"tags", tracker.Tags().Len(),
		"addresses", tracker.Addresses().Len(),
	)

	if err := tracker.WriteLedgers(stdout); err != nil {
		logger.Error("cannot write ledgers", "err", err)
		return verify.ExitError, report
	}

	return verify.ExitPassed, report
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(verify.ExitError)
	}
}
