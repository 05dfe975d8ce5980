package cmd

/*
Copyright © 2024 Ganeshdip Dumbare <ganeshdip.dumbare@gmail.com>
*/

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "1.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "locksmith",
	Short: "Redis backed distributed locks",
	Long: fmt.Sprintf(`locksmith (v%s)

Mutual exclusion across processes and hosts using a shared Redis instance.
Serve the lock HTTP API, operate on locks directly, or run a command while
holding a lock.`, Version),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
