package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	brokercfg "github.com/juagargi/esdx-scion/pkg/config"
)

var storePath string

// loadConfig loads cmd/broker/config/default.yaml plus the override
// file named by env (taken from ESDX_ENV). A missing config file falls
// back to an empty Config rather than aborting, and each subcommand
// then applies its own built-in defaults, since this CLI should work
// out of the box against the current directory.
func loadConfig(env string) *brokercfg.Config {
	cfg, err := brokercfg.Load(env)
	if err != nil {
		logrus.WithError(err).Debug("no broker config file found, using built-in defaults")
		return &brokercfg.Config{}
	}
	return cfg
}

func rootCmd(cfg *brokercfg.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "ESDX bandwidth marketplace broker administration",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", "broker.store.json", "path to the broker's store snapshot")
	cmd.AddCommand(brokerCmd(cfg), createClientCmd(), topologyCmd(cfg), fixturesCmd(cfg))
	return cmd
}

func newLogger() *zap.Logger {
	lv, err := logrus.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		lv = logrus.InfoLevel
	}
	logrus.SetLevel(lv)

	cfg := zap.NewProductionConfig()
	_ = cfg.Level.UnmarshalText([]byte(lv.String()))
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	_ = godotenv.Load(".env")

	viper.SetEnvPrefix("ESDX")
	viper.AutomaticEnv()
	viper.SetDefault("logging.level", "info")

	cfg := loadConfig(os.Getenv("ESDX_ENV"))

	if err := rootCmd(cfg).Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
