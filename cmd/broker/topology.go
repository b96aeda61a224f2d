package main

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/juagargi/esdx-scion/core/topology"
	brokercfg "github.com/juagargi/esdx-scion/pkg/config"
)

func topologyCmd(cfg *brokercfg.Config) *cobra.Command {
	var topoPath, internalAddr, requesterIA string
	var requesterSigB64 string
	var minPort, maxPort, lockAttempts, lockSleepMS int

	defaultMinPort := cfg.Topology.MinPort
	if defaultMinPort == 0 {
		defaultMinPort = 50000
	}
	defaultMaxPort := cfg.Topology.MaxPort
	if defaultMaxPort == 0 {
		defaultMaxPort = 51000
	}
	defaultLockAttempts := cfg.Topology.LockAttempts
	if defaultLockAttempts == 0 {
		defaultLockAttempts = topology.DefaultLockAttempts
	}
	defaultLockSleepMS := cfg.Topology.LockSleepMS
	if defaultLockSleepMS == 0 {
		defaultLockSleepMS = int(topology.DefaultLockSleep / time.Millisecond)
	}

	newMutator := func() (*topology.Mutator, error) {
		return topology.NewMutator(topoPath, internalAddr, minPort, maxPort, nil,
			lockAttempts, time.Duration(lockSleepMS)*time.Millisecond)
	}

	cmd := &cobra.Command{Use: "topology", Short: "activate or deactivate a contract in the local topology document"}

	activate := &cobra.Command{
		Use:   "activate <contract-id>",
		Short: "splice a contract's interface into the local ESDX border router",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contractID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()
			app, err := loadAppState(storePath, log)
			if err != nil {
				return err
			}
			sig, err := decodeRequesterSignature(requesterSigB64)
			if err != nil {
				return err
			}
			contract, po, offer, err := app.market.GetContract(contractID, requesterIA, sig)
			if err != nil {
				return err
			}
			mut, err := newMutator()
			if err != nil {
				return err
			}
			if err := mut.Activate(contract, offer, po); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "activated")
			return nil
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate <contract-id>",
		Short: "remove a contract's interface from the local ESDX border router",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contractID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()
			app, err := loadAppState(storePath, log)
			if err != nil {
				return err
			}
			sig, err := decodeRequesterSignature(requesterSigB64)
			if err != nil {
				return err
			}
			contract, _, _, err := app.market.GetContract(contractID, requesterIA, sig)
			if err != nil {
				return err
			}
			mut, err := newMutator()
			if err != nil {
				return err
			}
			if err := mut.Deactivate(contract); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deactivated")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&topoPath, "topo-file", firstNonEmpty(cfg.Topology.File, "topology.json"), "path to the local topology document")
	cmd.PersistentFlags().StringVar(&internalAddr, "internal-addr", firstNonEmpty(cfg.Topology.InternalAddr, "127.0.0.1:30042"), "internal_addr for the ESDX border router if it must be created")
	cmd.PersistentFlags().IntVar(&minPort, "min-port", defaultMinPort, "lowest underlay port to allocate")
	cmd.PersistentFlags().IntVar(&maxPort, "max-port", defaultMaxPort, "highest underlay port to allocate")
	cmd.PersistentFlags().IntVar(&lockAttempts, "lock-attempts", defaultLockAttempts, "topology file lock retry attempts")
	cmd.PersistentFlags().IntVar(&lockSleepMS, "lock-sleep-ms", defaultLockSleepMS, "delay between topology file lock retries, in milliseconds")
	cmd.PersistentFlags().StringVar(&requesterIA, "ia", "", "the IA requesting this mutation (must be the contract's buyer or seller)")
	cmd.PersistentFlags().StringVar(&requesterSigB64, "signature", "", "base64 signature over the GetContractRequest bytes")
	cmd.MarkPersistentFlagRequired("ia")
	cmd.MarkPersistentFlagRequired("signature")

	cmd.AddCommand(activate, deactivate)
	return cmd
}

func decodeRequesterSignature(b64Sig string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64Sig)
}
