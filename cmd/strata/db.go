package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/strata/pkg/engine"
)

// dataFile is the backing store's file name inside cfg.DataDir, the
// layout cmd/warren's --data-dir convention follows for its own Raft
// log/snapshot directory.
const dataFile = "strata.db"

func openDatabase() (*engine.Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %q: %w", cfg.DataDir, err)
	}
	path := filepath.Join(cfg.DataDir, dataFile)
	// No trigger runner is wired into the CLI, so statements run through
	// `run` or `repl` store rows without executing relations' trigger
	// scripts.
	return engine.Open(path, nil)
}
