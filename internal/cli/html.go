package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mfpreport/internal/records"
	"mfpreport/internal/report"
)

func (a *App) htmlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "html [days] [date]",
		Short: "Sync, then write one HTML report of the last days",
		Long: `Write report.html covering days (default $REPORT_DAYS) ending at date
(default: the last logged date).`,
		Example: "  mfpreport html 14 2021-12-31",
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := intArg(args, 0, "days", a.cfg.ReportDays)
			if err != nil {
				return err
			}
			end, haveEnd, err := dateArg(args, 1)
			if err != nil {
				return err
			}
			if days < 1 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
				return nil
			}
			writer, err := a.reportWriter()
			if err != nil {
				return err
			}

			return a.withStore(cmd.Context(), func(store records.Store) error {
				res, err := a.synchronize(cmd.Context(), store, nil)
				printSync(cmd, res)
				if err != nil {
					return err
				}
				snap, err := report.Load(cmd.Context(), store, a.logger.Slog())
				if err != nil {
					return err
				}
				if !haveEnd {
					end = snap.EndDate(a.today())
				}
				path, err := writer.Days(snap, end, days)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Save:", path)
				return nil
			})
		},
	}
}
