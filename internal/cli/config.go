package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mfpreport/internal/config"
)

func (a *App) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Save the current report settings to a new YAML file",
		Long:  `Write the settings in effect to config.yaml in $OUTPUT_DIR, or config_N.yaml when that name is taken.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.SaveSettings(a.cfg.OutputDir, a.settings)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Save:", path)
			return nil
		},
	}
}
