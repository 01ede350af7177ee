package server

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/cli/flags"
	cli_utils "github.com/solsafe/tribunal/cli/utils"
	"github.com/solsafe/tribunal/pkgs/randomness"
	"github.com/solsafe/tribunal/pkgs/server"
	"github.com/solsafe/tribunal/pkgs/store"
	"github.com/solsafe/tribunal/pkgs/tribunal"
	"github.com/solsafe/tribunal/pkgs/utils"
)

// StartServer runs the tribunal HTTP server. On first start it bootstraps the
// validator registry from the admin/quorum/minJurors flags; restarts reuse the
// stored registry.
var StartServer = &cobra.Command{
	Use:   "start-server",
	Short: "Starts the tribunal consensus server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := flags.BindServerFlags(cmd); err != nil {
			return err
		}
		logger, err := cli_utils.SetGlobalLogger(cmd, "tribunal-server")
		if err != nil {
			log.Fatal(err)
		}
		defer func() { _ = zap.L().Sync() }()

		admin, err := utils.HexToAddress(flags.Admin)
		if err != nil {
			logger.Fatal("invalid admin address", zap.Error(err))
		}

		db, err := store.Open(flags.DBPath)
		if err != nil {
			logger.Fatal("failed to open database", zap.String("path", flags.DBPath), zap.Error(err))
		}
		defer db.Close()

		var oracle randomness.Oracle
		if flags.OracleURL != "" {
			oracle = randomness.NewHTTPOracle(flags.OracleURL, logger)
		} else {
			logger.Warn("no oracle URL configured, running in-memory oracle")
			oracle = randomness.NewStaticOracle()
		}

		engine := tribunal.New(logger, db, tribunal.Config{
			Oracle:  oracle,
			Freezer: &tribunal.LogFreezer{Logger: logger},
		})
		if _, err := engine.Bootstrap(admin, flags.Quorum, flags.MinJurors); err != nil {
			if !errors.Is(err, tribunal.ErrRegistryExists) {
				logger.Fatal("failed to bootstrap registry", zap.Error(err))
			}
			logger.Info("registry already initialized, reusing stored parameters")
		}

		srv := server.New(engine, logger)
		logger.Info("starting tribunal server", zap.Uint64("port", flags.Port))
		if err := srv.Start(uint16(flags.Port)); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
		return nil
	},
}

func init() {
	flags.SetBaseFlags(StartServer)
	flags.PortFlag(StartServer)
	flags.DBPathFlag(StartServer)
	flags.AdminFlag(StartServer)
	flags.QuorumFlag(StartServer)
	flags.MinJurorsFlag(StartServer)
	flags.OracleURLFlag(StartServer)
}
