package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/solsafe/tribunal/cli/healthcheck"
	"github.com/solsafe/tribunal/cli/server"
)

func init() {
	RootCmd.AddCommand(server.StartServer)
	RootCmd.AddCommand(healthcheck.HealthCheck)
}

// RootCmd represents the root command of the tribunal CLI
var RootCmd = &cobra.Command{
	Use:   "tribunal",
	Short: "CLI for running the fraud-case juror consensus server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
	},
}

// Execute executes the root command
func Execute(appName, version string) {
	RootCmd.Short = appName
	RootCmd.Version = version

	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("failed to execute root command: %v", err)
	}
}
