// Package cli implements the episode-forge CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rcliao/episode-forge/internal/config"
	"github.com/rcliao/episode-forge/internal/logger"
	"github.com/rcliao/episode-forge/internal/store"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	storePath   string
	backendFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "episode-forge",
	Short: "Generate serialized children's story episodes",
	Long:  "Writes story episodes with an LLM, keeps them in a local store and renders soundtrack and video files for them. Every stage has an offline fallback.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "episode-forge.yaml", "Config file (missing file uses defaults)")
	RootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "", "Store path (overrides store.path)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Store backend: file or sqlite (overrides store.backend)")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if backendFlag != "" {
		cfg.Store.Backend = backendFlag
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	default:
		return store.NewFileStore(cfg.Store.Path, log)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
