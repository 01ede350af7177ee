package healthcheck

import (
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/cli/flags"
	cli_utils "github.com/solsafe/tribunal/cli/utils"
	"github.com/solsafe/tribunal/pkgs/client"
)

var HealthCheck = &cobra.Command{
	Use:   "health-check",
	Short: "Pings a tribunal server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := flags.BindHealthCheckFlags(cmd); err != nil {
			return err
		}
		logger, err := cli_utils.SetGlobalLogger(cmd, "health-check")
		if err != nil {
			log.Fatal(err)
		}
		defer func() { _ = zap.L().Sync() }()

		clnt := client.New(flags.ServerAddr, logger)
		res, err := clnt.HealthCheck()
		if err != nil {
			logger.Fatal("server unreachable", zap.String("addr", flags.ServerAddr), zap.Error(err))
		}
		logger.Info("server healthy", zap.String("addr", flags.ServerAddr), zap.String("status", res.Status))
		return nil
	},
}

func init() {
	flags.SetBaseFlags(HealthCheck)
	flags.ServerAddrFlag(HealthCheck)
}
