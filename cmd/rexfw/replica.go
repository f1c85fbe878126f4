package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/simeoncarstens/rexfw/pkg/proposer"
	"github.com/simeoncarstens/rexfw/pkg/replica"
	"github.com/simeoncarstens/rexfw/pkg/serving"
	"github.com/simeoncarstens/rexfw/pkg/testdensity"
	"github.com/simeoncarstens/rexfw/pkg/testsampler"
	"github.com/simeoncarstens/rexfw/pkg/transport"
)

var replicaCmd = &cobra.Command{
	Use:   "replica",
	Args:  cobra.NoArgs,
	Short: "Run a single replica as a standalone process",
	Long:  `Launches one replica process, identified by --name, addressed over a real TCP transport. Its density parameter is looked up from the matching entry in the config file's replicas.schedule list.`,
	RunE:  runReplica,
}

func init() {
	replicaCmd.Flags().String("name", "", "this replica's name, must match an entry in replicas.names")
	replicaCmd.Flags().String("listen", ":7001", "address to listen on for master/peer connections")
	_ = replicaCmd.MarkFlagRequired("name")
}

func runReplica(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := newLogger()

	name, _ := cmd.Flags().GetString("name")
	idx := -1
	for i, n := range cfg.Replicas.Names {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("replica %q not found in replicas.names", name)
	}

	if err := ensureOutputDirs(cfg, []string{name}); err != nil {
		return fmt.Errorf("failed to prepare output directories: %w", err)
	}

	listenAddr, _ := cmd.Flags().GetString("listen")
	peerAddrs, err := peerAddressesFromConfig(cfg, name)
	if err != nil {
		return err
	}

	nt, err := transport.NewNetTransport(name, listenAddr, peerAddrs)
	if err != nil {
		return fmt.Errorf("failed to start replica transport: %w", err)
	}
	defer nt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel, log)

	mu := cfg.Replicas.Schedule[idx]
	density := testdensity.NewNormal(1, mu, 1.0)
	rng := rand.New(rand.NewSource(int64(idx) + 1))
	sampler := testsampler.NewRWMC(density, rng, 0.5, []float64{mu})

	proposers := map[string]proposer.Proposer{
		"re": proposer.NewRE(),
	}

	outDir := fmt.Sprintf("%s/%s", cfg.Output.RootDir, name)
	r := replica.New(name, density, sampler, proposers, rng, outDir)

	log.Info("replica serving", "replica", name, "listen", listenAddr)
	if err := serving.Serve(ctx, nt, r, log.WithField("replica", name)); err != nil {
		return fmt.Errorf("replica %s serving loop failed: %w", name, err)
	}
	log.Info("replica terminated", "replica", name)
	return nil
}
