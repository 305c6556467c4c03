package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mfpreport/internal/core"
	"mfpreport/internal/records"
	"mfpreport/internal/services"
)

func (a *App) csvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csv [date]",
		Short: "Append every missing diary day to the record log",
		Long: `Extract diary days into the record log, resuming after its last date.
The date (YYYY-MM-DD) is only used when the log is new.`,
		Example: "  mfpreport csv 2021-12-31",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, ok, err := dateArg(args, 0)
			if err != nil {
				return err
			}
			var startPtr *core.Date
			if ok {
				startPtr = &start
			}
			return a.withStore(cmd.Context(), func(store records.Store) error {
				res, err := a.synchronize(cmd.Context(), store, startPtr)
				printSync(cmd, res)
				return err
			})
		},
	}
}

func printSync(cmd *cobra.Command, res services.SyncResult) {
	out := cmd.OutOrStdout()
	switch {
	case res.Reason == services.NothingToExtract:
		fmt.Fprintln(out, "Nothing to extract: the record log is empty, give a start date")
	case res.Reason == services.UnreadableTail:
		fmt.Fprintln(out, "Nothing to extract: the last row of the record log is unreadable or ends an incomplete day, give a start date")
	case res.Skipped:
		fmt.Fprintln(out, "Record log is up to date")
	default:
		fmt.Fprintf(out, "Synchronized %d days (%d rows) from %s\n", res.DaysCommitted, res.RowsWritten, res.From)
	}
	if res.ConfigGaps > 0 {
		fmt.Fprintf(out, "Warning: alcohol category missing on %d days\n", res.ConfigGaps)
	}
}
