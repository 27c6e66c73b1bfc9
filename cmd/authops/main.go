package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/authops/cmd/authops/commands"
	"github.com/systmms/authops/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "authops",
		Short: "Automated sign-in for federated identity providers",
		Long: `authops signs in to a Microsoft-style federated identity provider in a
scripted browser session and persists the resulting session snapshot so
subsequent automated runs can skip interactive login.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			globals.ConfigFile = configFile
			globals.ConfigExplicit = cmd.Flags().Changed("config")
			globals.Debug = debug
			globals.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "authops.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewLoginCommand(globals),
		commands.NewProvidersCommand(globals),
		commands.NewDoctorCommand(globals),
		commands.NewCompletionCommand(globals),
	)

	return rootCmd.Execute()
}
