package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/simeoncarstens/rexfw/pkg/config"
	"github.com/simeoncarstens/rexfw/pkg/rexlog"
)

// loadConfig loads the configuration from file, auto-generating a
// default at cfgFile's path if it doesn't exist yet.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = "rexfw.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("config file not found, creating default configuration at: %s\n", path)
		cfg := config.DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// peerAddressesFromConfig returns the peers map minus self — the net
// transport dials every *other* peer and listens for the rest.
func peerAddressesFromConfig(cfg *config.Config, self string) (map[string]string, error) {
	if len(cfg.Peers.Addresses) == 0 {
		return nil, fmt.Errorf("peers.addresses is empty: required for master/replica subcommands")
	}
	out := make(map[string]string, len(cfg.Peers.Addresses))
	for name, addr := range cfg.Peers.Addresses {
		if name != self {
			out[name] = addr
		}
	}
	return out, nil
}

// ensureOutputDirs creates cfg.Output.RootDir and, for each name in
// replicaNames, its samples/ and energies/ subdirectories — directory
// creation happens here at the CLI edge, not inside the replica or
// statistics components themselves (§1/§6).
func ensureOutputDirs(cfg *config.Config, replicaNames []string) error {
	if err := os.MkdirAll(cfg.Output.RootDir, 0o755); err != nil {
		return fmt.Errorf("create output root %s: %w", cfg.Output.RootDir, err)
	}
	for _, name := range replicaNames {
		outDir := filepath.Join(cfg.Output.RootDir, name)
		if err := os.MkdirAll(filepath.Join(outDir, "samples"), 0o755); err != nil {
			return fmt.Errorf("create samples dir for %s: %w", name, err)
		}
		if err := os.MkdirAll(filepath.Join(outDir, "energies"), 0o755); err != nil {
			return fmt.Errorf("create energies dir for %s: %w", name, err)
		}
	}
	return nil
}

func newLogger() *rexlog.Logger {
	level := rexlog.LogLevelInfo
	if verbose {
		level = rexlog.LogLevelDebug
	}
	return rexlog.New(rexlog.Config{Level: level, Format: rexlog.LogFormatText, Output: os.Stdout})
}
