// Package config defines the on-disk configuration for a rexfw run: the
// replica roster, swap schedule, statistics writers, and the ambient
// logging/output settings every launch mode shares.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a rexfw run.
type Config struct {
	Framework  FrameworkConfig  `yaml:"framework"`
	Run        RunConfig        `yaml:"run"`
	Replicas   ReplicasConfig   `yaml:"replicas"`
	Swap       SwapConfig       `yaml:"swap"`
	Statistics StatisticsConfig `yaml:"statistics"`
	Output     OutputConfig     `yaml:"output"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Peers      PeersConfig      `yaml:"peers"`
}

// PeersConfig maps every peer name (replica names plus "master") to the
// TCP address the net transport dials to reach it — only consulted by
// the master/replica subcommands, which run as separate OS processes;
// the single-process run subcommand never reads this.
type PeersConfig struct {
	Addresses map[string]string `yaml:"addresses"`
}

// FrameworkConfig contains general framework settings.
type FrameworkConfig struct {
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// RunConfig contains the master's main-loop parameters (§4.8).
type RunConfig struct {
	NIterations              int `yaml:"n_iterations"`
	SwapInterval             int `yaml:"swap_interval"`
	StatusInterval           int `yaml:"status_interval"`
	DumpInterval             int `yaml:"dump_interval"`
	Offset                   int `yaml:"offset"`
	DumpStep                 int `yaml:"dump_step"`
	StatisticsUpdateInterval int `yaml:"statistics_update_interval"`
	// Seed seeds the master's own acceptance-draw stream. Each replica
	// seeds independently from its rank (§5) and is not configured here.
	Seed int64 `yaml:"seed"`
}

// ReplicasConfig describes the replica roster and the density schedule
// assigned to each replica.
type ReplicasConfig struct {
	Names    []string  `yaml:"names"`
	Schedule []float64 `yaml:"schedule"`
}

// SwapConfig configures the swap-list generator and exchange parameters.
// cmd/rexfw reads only Proposer: it always builds the standard
// generator, and Generator and Params are not read.
type SwapConfig struct {
	Generator string                 `yaml:"generator"`
	Proposer  string                 `yaml:"proposer"`
	Params    map[string]interface{} `yaml:"params"`
}

// StatisticsConfig selects which writers the statistics engine drives.
// cmd/rexfw reads Console and File; Works and Heats are not read, and no
// works/heats writer is attached.
type StatisticsConfig struct {
	Console bool `yaml:"console"`
	File    bool `yaml:"file"`
	Works   bool `yaml:"works"`
	Heats   bool `yaml:"heats"`
}

// OutputConfig points at the run's output tree (§6).
type OutputConfig struct {
	RootDir string `yaml:"root_dir"`
}

// MetricsConfig configures the optional Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a default two-replica RE configuration suitable
// for a quick local run.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			Version:   "v1",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Run: RunConfig{
			NIterations:              1000,
			SwapInterval:             5,
			StatusInterval:           50,
			DumpInterval:             100,
			Offset:                   0,
			DumpStep:                 1,
			StatisticsUpdateInterval: 50,
			Seed:                     0,
		},
		Replicas: ReplicasConfig{
			Names:    []string{"replica1", "replica2"},
			Schedule: []float64{1.0, 2.0},
		},
		Swap: SwapConfig{
			Generator: "standard",
			Proposer:  "re",
		},
		Statistics: StatisticsConfig{
			Console: true,
			File:    true,
			Works:   true,
			Heats:   true,
		},
		Output: OutputConfig{
			RootDir: "./output",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Peers: PeersConfig{
			Addresses: map[string]string{
				"master":   "localhost:7000",
				"replica1": "localhost:7001",
				"replica2": "localhost:7002",
			},
		},
	}
}

// Load reads configuration from a YAML file, falling back to
// DefaultConfig() if path does not exist. Environment variables
// referenced as $NAME or ${NAME} in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for the constraints the master and
// replica agents rely on.
func (c *Config) Validate() error {
	if len(c.Replicas.Names) < 2 {
		return fmt.Errorf("replicas.names must list at least two replicas")
	}

	if len(c.Replicas.Schedule) != len(c.Replicas.Names) {
		return fmt.Errorf("replicas.schedule must have one entry per replica (got %d schedule entries for %d replicas)",
			len(c.Replicas.Schedule), len(c.Replicas.Names))
	}

	seen := make(map[string]bool, len(c.Replicas.Names))
	for _, name := range c.Replicas.Names {
		if seen[name] {
			return fmt.Errorf("replicas.names contains duplicate entry %q", name)
		}
		seen[name] = true
	}

	if c.Run.NIterations < 1 {
		return fmt.Errorf("run.n_iterations must be at least 1")
	}
	if c.Run.SwapInterval < 1 {
		return fmt.Errorf("run.swap_interval must be at least 1")
	}
	if c.Run.DumpStep < 1 {
		return fmt.Errorf("run.dump_step must be at least 1")
	}

	if c.Output.RootDir == "" {
		return fmt.Errorf("output.root_dir is required")
	}

	return nil
}
