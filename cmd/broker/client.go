package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juagargi/esdx-scion/core"
)

func createClientCmd() *cobra.Command {
	var ia, certPath, name string
	var force bool

	cmd := &cobra.Command{
		Use:   "create-client",
		Short: "create or replace a client/provider AS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.ValidateIA(ia); err != nil {
				return err
			}
			if name == "" {
				name = ia
			}
			certPEM, err := os.ReadFile(certPath)
			if err != nil {
				return err
			}

			log := newLogger()
			defer log.Sync()
			app, err := loadAppState(storePath, log)
			if err != nil {
				return err
			}

			tx := app.store.Begin()
			if err := core.CreateAS(tx, core.AS{IAID: ia, CertificatePEM: string(certPEM), Name: name}, force); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			if err := app.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "done")
			return nil
		},
	}
	cmd.Flags().StringVar(&ia, "ia", "", "the IA of the client")
	cmd.Flags().StringVarP(&certPath, "cert", "c", "", "path to the client's certificate")
	cmd.Flags().StringVar(&name, "name", "", "a common name for this client")
	cmd.Flags().BoolVar(&force, "force", false, "if the IA exists already, remove the previous one")
	cmd.MarkFlagRequired("ia")
	cmd.MarkFlagRequired("cert")
	return cmd
}
