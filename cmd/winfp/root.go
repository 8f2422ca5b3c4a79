package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWith(systemPlatform())
}

func newRootCommandWith(p platform) *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, p)

	rootCmd := &cobra.Command{
		Use:   "winfp",
		Short: "Windows fingerprint reader diagnostics and maintenance",
		Long: "Diagnoses fingerprint reader issues on Windows at multiple levels:\n" +
			"hardware detection, biometric service status, WinBio unit enumeration,\n" +
			"interactive sensor operations and storage database maintenance.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	for _, cmd := range newDiagnoseCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range newSensorCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newEnrollCommand(ctx))
	rootCmd.AddCommand(newEnumDatabasesCommand(ctx))
	rootCmd.AddCommand(newDeleteDatabaseCommand(ctx))
	rootCmd.AddCommand(newServiceCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
