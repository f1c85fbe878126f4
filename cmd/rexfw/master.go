package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simeoncarstens/rexfw/pkg/master"
	"github.com/simeoncarstens/rexfw/pkg/proposer"
	"github.com/simeoncarstens/rexfw/pkg/statistics"
	"github.com/simeoncarstens/rexfw/pkg/swaplist"
	"github.com/simeoncarstens/rexfw/pkg/transport"
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Args:  cobra.NoArgs,
	Short: "Run the exchange master as a standalone process",
	Long:  `Launches the exchange master process, addressed over a real TCP transport. Peer addresses for every replica must be listed in the config file's peers section.`,
	RunE:  runMaster,
}

func init() {
	masterCmd.Flags().String("listen", ":7000", "address to listen on for replica connections")
}

func runMaster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := newLogger()

	if err := ensureOutputDirs(cfg, nil); err != nil {
		return fmt.Errorf("failed to prepare output directories: %w", err)
	}

	listenAddr, _ := cmd.Flags().GetString("listen")
	peerAddrs, err := peerAddressesFromConfig(cfg, "master")
	if err != nil {
		return err
	}

	nt, err := transport.NewNetTransport("master", listenAddr, peerAddrs)
	if err != nil {
		return fmt.Errorf("failed to start master transport: %w", err)
	}
	defer nt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel, log)

	exchangeParams := make([]swaplist.ExchangeParams, len(cfg.Replicas.Names))
	for i := range exchangeParams {
		exchangeParams[i] = swaplist.ExchangeParams{
			ProposerNames:  []string{cfg.Swap.Proposer},
			ProposerParams: &proposer.REParams{Names: []string{cfg.Swap.Proposer}},
		}
	}
	generator := swaplist.NewStandardGenerator(cfg.Replicas.Names, exchangeParams)

	samplingStats := statistics.NewStatistics(
		append(statistics.DefaultMCMCAverages(cfg.Replicas.Names, "x"), statistics.DefaultStepsizes(cfg.Replicas.Names, "x")...),
		buildMCMCWriters(cfg),
	)
	swapStats := statistics.NewREStatistics(statistics.DefaultPairs(cfg.Replicas.Names), buildREWriters(cfg))

	m := master.New(master.Config{
		Name:                     "master",
		ReplicaNames:             cfg.Replicas.Names,
		SwapGenerator:            generator,
		SamplingStatistics:       samplingStats,
		SwapStatistics:           swapStats,
		Transport:                nt,
		Log:                      log,
		NIterations:              cfg.Run.NIterations,
		SwapInterval:             cfg.Run.SwapInterval,
		StatusInterval:           cfg.Run.StatusInterval,
		DumpInterval:             cfg.Run.DumpInterval,
		Offset:                   cfg.Run.Offset,
		DumpStep:                 cfg.Run.DumpStep,
		StatisticsUpdateInterval: cfg.Run.StatisticsUpdateInterval,
		Seed:                     cfg.Run.Seed,
	})

	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("master run failed: %w", err)
	}
	log.Info("master run completed")
	return nil
}
