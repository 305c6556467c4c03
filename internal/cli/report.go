package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mfpreport/internal/records"
	"mfpreport/internal/report"
)

const defaultWeeks = 2

func (a *App) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [weeks] [date]",
		Short: "Sync, then write one weekly HTML page per week going back",
		Long: `Write report_<end>.html for each of weeks (default 2) 7-day windows,
the newest ending at date (default: the last logged date).`,
		Example: "  mfpreport report 3 2021-12-31",
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks, err := intArg(args, 0, "weeks", defaultWeeks)
			if err != nil {
				return err
			}
			end, haveEnd, err := dateArg(args, 1)
			if err != nil {
				return err
			}
			if weeks < 1 {
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
				paths, err := writer.Weeks(cmd.Context(), snap, end, weeks)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), "Save:", p)
				}
				return nil
			})
		},
	}
}
