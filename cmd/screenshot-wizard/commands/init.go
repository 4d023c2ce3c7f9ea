package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Grabemic/Screenshot-wizard/cmd/screenshot-wizard/ui"
)

var (
	initInput  string
	initOutput string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the folder structure",
	Long: `Create the input, output and archive folders. With --input or --output the
new folder locations are written back to the settings file first.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initInput, "input", "", "input folder to save in the settings file")
	initCmd.Flags().StringVar(&initOutput, "output", "", "output folder to save in the settings file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if initInput != "" || initOutput != "" {
		input, output := cfg.Folders.Input, cfg.Folders.Output
		if initInput != "" {
			input = initInput
		}
		if initOutput != "" {
			output = initOutput
		}
		if err := cfg.SaveFolders(input, output); err != nil {
			return err
		}
		ui.Success("Saved folders to %s", cfg.Path())
	}

	if err := cfg.EnsureFolders(); err != nil {
		return err
	}
	for _, dir := range []string{cfg.InputDir(), cfg.OutputDir(), cfg.ArchiveDir()} {
		ui.Message("Created folder: %s", dir)
	}

	root := cfg.ProjectRoot()
	if !exists(filepath.Join(root, ".env")) && cfg.RequireAPIKey() != nil {
		ui.Newline()
		ui.Section("IMPORTANT: API Key Setup Required")
		if exists(filepath.Join(root, ".env.example")) {
			ui.Message("1. Copy .env.example to .env")
		} else {
			ui.Message("1. Create a .env file in %s", root)
		}
		ui.Message("2. Set OPENAI_API_KEY in .env")
		ui.Newline()
		ui.Message("Your API key is stored locally only and never shared.")
	}

	ui.Newline()
	ui.Success("Initialization complete!")
	ui.Message("Run 'screenshot-wizard watch' to start monitoring.")
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
