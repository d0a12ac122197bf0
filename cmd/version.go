package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the redwire-cli build version, set at build time via
// -ldflags "-X redwire/cmd.Version=...".
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionStr = `
redwire-cli version: %s
GOOS: %s-%s`

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the redwire-cli version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf(versionStr+"\n", Version, runtime.GOOS, runtime.GOARCH)
	},
}
