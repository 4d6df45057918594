// Command strata is the embeddable Datalog database's standalone host
// process: it opens a backing store, exposes relation-catalog and
// running-query administration as CLI verbs, and can serve Prometheus
// metrics and health endpoints for a long-running deployment. It is
// grounded on cmd/warren/main.go's rootCmd/persistent-flags/
// cobra.OnInitialize(initLogging) shape, trimmed to the one-process,
// no-cluster scope this database targets.
package main

import (
	"fmt"
	"os"

	"github.com/cuemby/strata/pkg/config"
	"github.com/cuemby/strata/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var cfg config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata - an embeddable Datalog database",
	Long: `Strata evaluates stratified Datalog programs over a
transactional, ordered-byte-key store and manages the relation catalog
those programs read and write.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("strata version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("data-dir", "", "backing store directory (overrides --config)")
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging, loadConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relationCmd)
	rootCmd.AddCommand(runningCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(importFromBackupCmd)
	rootCmd.AddCommand(compactCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// loadConfig populates the package-level cfg from --config (if given),
// then layers --data-dir on top since an explicit flag always wins over
// a file setting.
func loadConfig() {
	cfg = config.Defaults()
	if path, _ := rootCmd.PersistentFlags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
}
