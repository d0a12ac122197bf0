package cmd

import (
	"time"

	"redwire/internal/cli"

	"github.com/spf13/cobra"
)

// connectCmd opens an interactive (or scripted) session against a RESP2
// server using the redwire client library.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a RESP2 server interactively or in batch mode",
	Long: `Connect to a RESP2 server and execute commands interactively or in
batch mode, the way redis-cli does.

Examples:
  redwire-cli connect
  redwire-cli connect --host 127.0.0.1 --port 6379
  redwire-cli connect --eval "SET key value"
  redwire-cli connect --file commands.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli.Run(&cli.Config{
			Host:     getStringFlag(cmd, "host", "127.0.0.1"),
			Port:     getIntFlag(cmd, "port", 6379),
			Password: getStringFlag(cmd, "password", ""),
			Database: getIntFlag(cmd, "db", 0),
			Timeout:  getDurationFlag(cmd, "timeout", 5*time.Second),
			TLS:      getBoolFlag(cmd, "tls"),
			Raw:      getBoolFlag(cmd, "raw"),
			Eval:     getStringFlag(cmd, "eval", ""),
			File:     getStringFlag(cmd, "file", ""),
			Pipe:     getBoolFlag(cmd, "pipe"),
		}, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Duration("timeout", 5*time.Second, "Connection timeout")
	connectCmd.Flags().Bool("raw", false, "Use raw formatting for replies")
	connectCmd.Flags().String("eval", "", "Send the given command and exit")
	connectCmd.Flags().String("file", "", "Execute commands from file")
	connectCmd.Flags().Bool("pipe", false, "Pipe mode: read commands from stdin")
}

func getDurationFlag(cmd *cobra.Command, name string, defaultValue time.Duration) time.Duration {
	if value, err := cmd.Flags().GetDuration(name); err == nil {
		return value
	}
	return defaultValue
}
