package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/juagargi/esdx-scion/core"
	brokercfg "github.com/juagargi/esdx-scion/pkg/config"
	"github.com/juagargi/esdx-scion/pkg/utils"
)

// brokerIdentityValidity defaults to one year but can be widened
// or narrowed per deployment via ESDX_BROKER_CERT_VALIDITY_HOURS,
// without requiring a rebuild.
func brokerIdentityValidity() time.Duration {
	hours := utils.EnvOrDefaultUint64("ESDX_BROKER_CERT_VALIDITY_HOURS", 365*24)
	return time.Duration(hours) * time.Hour
}

func brokerCmd(cfg *brokercfg.Config) *cobra.Command {
	var create, remove, export bool
	certFile := firstNonEmpty(cfg.Broker.CertificateFile, "broker.crt")
	keyFile := firstNonEmpty(cfg.Broker.KeyFile, "broker.key")

	cmd := &cobra.Command{
		Use:   "broker",
		Short: "manage the singleton broker identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			app, err := loadAppState(storePath, log)
			if err != nil {
				return err
			}

			switch {
			case remove:
				tx := app.store.Begin()
				if err := core.RemoveBroker(tx, app.cache); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				logrus.Info("broker removed")
			case create:
				certPEM, keyPEM, err := core.GenerateSelfSignedIdentity("broker", brokerIdentityValidity())
				if err != nil {
					return err
				}
				tx := app.store.Begin()
				if err := core.CreateBroker(tx, core.Broker{CertificatePEM: certPEM, KeyPEM: keyPEM}, app.cache); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				logrus.Info("broker created")
			case export:
				tx := app.store.Begin()
				defer tx.Rollback()
				b, err := core.GetBroker(tx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(certFile, []byte(b.CertificatePEM), 0o644); err != nil {
					return err
				}
				if err := os.WriteFile(keyFile, []byte(b.KeyPEM), 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s and %s\n", certFile, keyFile)
				return nil
			default:
				return fmt.Errorf("one of --create, --remove or --export is required")
			}
			return app.save()
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "create the singleton broker identity")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the singleton broker identity")
	cmd.Flags().BoolVar(&export, "export", false, "export the broker's certificate and key to disk")
	return cmd
}
