package cli

import (
	"github.com/spf13/cobra"

	"mfpreport/internal/core"
	"mfpreport/internal/records"
	"mfpreport/internal/report"
)

func (a *App) pivotCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "pivot",
		Short: "Print the per-day totals of the record log as CSV",
		Long: `Print one row per date and one column per total. Cells a day never
recorded are left empty. The log is read as is, without syncing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var lo, hi core.Date
			var err error
			if from != "" {
				if lo, err = core.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if hi, err = core.ParseDate(to); err != nil {
					return err
				}
			}
			return a.withStore(cmd.Context(), func(store records.Store) error {
				snap, err := report.Load(cmd.Context(), store, a.logger.Slog())
				if err != nil {
					return err
				}
				return snap.View.WriteCSV(cmd.OutOrStdout(), lo, hi)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	return cmd
}
