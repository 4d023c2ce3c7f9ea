package commands

import (
	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/cmd/screenshot-wizard/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ui.Message("%s", cfg.Display())
		if err := cfg.RequireAPIKey(); err != nil {
			ui.Warning("API key not configured. Set OPENAI_API_KEY in .env")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
