package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juagargi/esdx-scion/core"
	brokercfg "github.com/juagargi/esdx-scion/pkg/config"
)

func fixturesCmd(cfg *brokercfg.Config) *cobra.Command {
	var manifestPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "bootstrap the store from a YAML fixture manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := core.LoadFixtureManifest(manifestPath)
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()
			app, err := loadAppState(storePath, log)
			if err != nil {
				return err
			}
			if err := manifest.Apply(app.store, app.cache, force); err != nil {
				return err
			}
			if err := app.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "done")
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", cfg.Fixtures.ManifestFile, "path to the fixture manifest YAML file")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing broker identity if present")
	if cfg.Fixtures.ManifestFile == "" {
		cmd.MarkFlagRequired("manifest")
	}
	return cmd
}
