package main

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/juagargi/esdx-scion/core"
)

// appState wires the process-wide singletons every subcommand needs:
// the store (persisted to a flat JSON snapshot between CLI
// invocations, in lieu of the real transactional backend spec §1
// treats as an external collaborator), the broker's lazy signing
// cache, and the market service built on top of both.
type appState struct {
	storePath string
	store     *core.MemStore
	cache     *core.BrokerCache
	market    *core.MarketService
	log       *zap.Logger
}

func loadAppState(storePath string, log *zap.Logger) (*appState, error) {
	snapshot := map[string][]byte{}
	if raw, err := os.ReadFile(storePath); err == nil {
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return nil, core.WrapError(core.KindInternal, "parse store snapshot", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, core.WrapError(core.KindInternal, "read store snapshot", err)
	}

	store := core.NewMemStoreFromSnapshot(snapshot)
	cache := core.NewBrokerCache()
	return &appState{
		storePath: storePath,
		store:     store,
		cache:     cache,
		market:    core.NewMarketService(store, cache, log),
		log:       log,
	}, nil
}

// save persists the store's current contents back to storePath.
func (a *appState) save() error {
	raw, err := json.MarshalIndent(a.store.Snapshot(), "", "  ")
	if err != nil {
		return core.WrapError(core.KindInternal, "marshal store snapshot", err)
	}
	return os.WriteFile(a.storePath, raw, 0o644)
}

// firstNonEmpty returns the first non-empty string in vals.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
