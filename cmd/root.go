package cmd

import (
	"os"

	"redwire/internal/logger"

	"github.com/spf13/cobra"
)

// rootCmd is the base command when redwire-cli is called without
// subcommands: it opens an interactive session against the host/port given
// on the flags, same defaults the library itself uses (port 6379).
var rootCmd = &cobra.Command{
	Use:   "redwire-cli",
	Short: "Interactive client and benchmark tool for a RESP2 server",
	Long: `redwire-cli is a development tool built on the redwire client
library: it exercises Connect/Exec/Pipeline the way a real caller
would, either interactively or via the bench subcommand.

Running redwire-cli with no subcommand is shorthand for "redwire-cli connect".`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.Init(logger.LogLevel(getStringFlag(cmd, "log-level", "info")))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return connectCmd.RunE(cmd, args)
	},
}

// Execute adds child commands to root and sets flags appropriately.
// Called by main.main(). Only needs to happen once to rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("host", "127.0.0.1", "Server host")
	rootCmd.PersistentFlags().Int("port", 6379, "Server port")
	rootCmd.PersistentFlags().Bool("tls", false, "Use TLS")
	rootCmd.PersistentFlags().String("password", "", "AUTH password")
	rootCmd.PersistentFlags().Int("db", 0, "Database index to SELECT after connecting")

	logger.Init(logger.InfoLevel)
}

func getStringFlag(cmd *cobra.Command, name, defaultValue string) string {
	if value, err := cmd.Flags().GetString(name); err == nil && value != "" {
		return value
	}
	return defaultValue
}

func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func getIntFlag(cmd *cobra.Command, name string, defaultValue int) int {
	if value, err := cmd.Flags().GetInt(name); err == nil {
		return value
	}
	return defaultValue
}
