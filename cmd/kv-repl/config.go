package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// sessionConfig records the shape of a data file so 'kv-repl open' can
// re-derive the region size and B+ tree order without guessing. Written
// once by 'kv-repl new', read back by 'kv-repl open'. Stored as JSONC
// (parsed with hujson) so a user can hand-edit it with comments, matching
// how .tk.json is loaded in the ticket-tracker config.
type sessionConfig struct {
	Structure string `json:"structure"` // "hashmap" or "btree"
	Slots     int    `json:"slots"`     // region size, in slots (btree only)
	Order     int    `json:"order,omitempty"`
}

func sidecarPath(dataFile string) string {
	return dataFile + ".kvrepl.json"
}

func saveSessionConfig(dataFile string, cfg sessionConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session config: %w", err)
	}

	return os.WriteFile(sidecarPath(dataFile), data, 0o644)
}

func loadSessionConfig(dataFile string) (sessionConfig, error) {
	raw, err := os.ReadFile(sidecarPath(dataFile))
	if err != nil {
		return sessionConfig{}, fmt.Errorf("reading %s: %w", sidecarPath(dataFile), err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return sessionConfig{}, fmt.Errorf("invalid JSONC in %s: %w", sidecarPath(dataFile), err)
	}

	var cfg sessionConfig

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return sessionConfig{}, fmt.Errorf("invalid JSON in %s: %w", sidecarPath(dataFile), err)
	}

	return cfg, nil
}
