package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"net/http"

	"github.com/simeoncarstens/rexfw/pkg/config"
	"github.com/simeoncarstens/rexfw/pkg/master"
	"github.com/simeoncarstens/rexfw/pkg/proposer"
	"github.com/simeoncarstens/rexfw/pkg/replica"
	"github.com/simeoncarstens/rexfw/pkg/serving"
	"github.com/simeoncarstens/rexfw/pkg/statistics"
	"github.com/simeoncarstens/rexfw/pkg/swaplist"
	"github.com/simeoncarstens/rexfw/pkg/testdensity"
	"github.com/simeoncarstens/rexfw/pkg/testsampler"
	"github.com/simeoncarstens/rexfw/pkg/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Run master and all replicas in one process",
	Long:  `Launches the exchange master and every replica as goroutines of this process, wired together through an in-memory channel transport. Useful for local testing; the master and replica subcommands are what a genuine multi-process deployment uses.`,
	RunE:  runSingleProcess,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "validate configuration without executing")
}

func runSingleProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := newLogger()
	log.Info("rexfw starting", "mode", "single-process", "version", version)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Println("configuration is valid (dry-run mode)")
		return nil
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	if err := ensureOutputDirs(cfg, cfg.Replicas.Names); err != nil {
		return fmt.Errorf("failed to prepare output directories: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel, log)

	masterName := "master"
	peers := append([]string{masterName}, cfg.Replicas.Names...)
	hub := transport.NewHub(peers)

	replicas := make(map[string]*replica.Replica, len(cfg.Replicas.Names))
	for i, name := range cfg.Replicas.Names {
		mu := cfg.Replicas.Schedule[i]
		density := testdensity.NewNormal(1, mu, 1.0)
		rng := rand.New(rand.NewSource(int64(i) + 1))
		sampler := testsampler.NewRWMC(density, rng, 0.5, []float64{mu})

		proposers := map[string]proposer.Proposer{
			"re": proposer.NewRE(),
		}

		outDir := fmt.Sprintf("%s/%s", cfg.Output.RootDir, name)
		replicas[name] = replica.New(name, density, sampler, proposers, rng, outDir)
	}

	var wg sync.WaitGroup
	for name, r := range replicas {
		wg.Add(1)
		go func(name string, r *replica.Replica) {
			defer wg.Done()
			endpoint := hub.Endpoint(name)
			if err := serving.Serve(ctx, endpoint, r, log.WithField("replica", name)); err != nil {
				log.Error("replica serving loop exited", "replica", name, "error", err.Error())
			}
		}(name, r)
	}

	exchangeParams := make([]swaplist.ExchangeParams, len(cfg.Replicas.Names))
	for i := range exchangeParams {
		exchangeParams[i] = swaplist.ExchangeParams{
			ProposerNames:  []string{cfg.Swap.Proposer},
			ProposerParams: &proposer.REParams{Names: []string{cfg.Swap.Proposer}},
		}
	}
	generator := swaplist.NewStandardGenerator(cfg.Replicas.Names, exchangeParams)

	samplingWriters := buildMCMCWriters(cfg)
	swapWriters := buildREWriters(cfg)

	samplingStats := statistics.NewStatistics(
		append(statistics.DefaultMCMCAverages(cfg.Replicas.Names, "x"), statistics.DefaultStepsizes(cfg.Replicas.Names, "x")...),
		samplingWriters,
	)
	swapStats := statistics.NewREStatistics(statistics.DefaultPairs(cfg.Replicas.Names), swapWriters)

	m := master.New(master.Config{
		Name:                     masterName,
		ReplicaNames:             cfg.Replicas.Names,
		SwapGenerator:            generator,
		SamplingStatistics:       samplingStats,
		SwapStatistics:           swapStats,
		Transport:                hub.Endpoint(masterName),
		Log:                      log.WithField("component", "master"),
		NIterations:              cfg.Run.NIterations,
		SwapInterval:             cfg.Run.SwapInterval,
		StatusInterval:           cfg.Run.StatusInterval,
		DumpInterval:             cfg.Run.DumpInterval,
		Offset:                   cfg.Run.Offset,
		DumpStep:                 cfg.Run.DumpStep,
		StatisticsUpdateInterval: cfg.Run.StatisticsUpdateInterval,
		Seed:                     cfg.Run.Seed,
	})

	runErr := m.Run(ctx)
	wg.Wait()

	if runErr != nil {
		return fmt.Errorf("master run failed: %w", runErr)
	}
	log.Info("rexfw run completed")
	return nil
}

func buildMCMCWriters(cfg *config.Config) []statistics.Writer {
	var writers []statistics.Writer
	if cfg.Statistics.Console {
		writers = append(writers, statistics.NewConsoleMCMCWriter())
	}
	if cfg.Statistics.File {
		writers = append(writers, statistics.NewFileMCMCWriter(cfg.Output.RootDir+"/mcmc_stats.tsv"))
	}
	if cfg.Metrics.Enabled {
		writers = append(writers, statistics.NewPrometheusWriter(prometheus.DefaultRegisterer))
	}
	return writers
}

func buildREWriters(cfg *config.Config) []statistics.Writer {
	var writers []statistics.Writer
	if cfg.Statistics.Console {
		writers = append(writers, statistics.NewConsoleREWriter())
	}
	if cfg.Statistics.File {
		writers = append(writers, statistics.NewFileREWriter(cfg.Output.RootDir+"/re_stats.tsv"))
	}
	return writers
}

func serveMetrics(addr string, log interface{ Info(string, ...interface{}) }) {
	log.Info("serving metrics", "addr", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	_ = http.ListenAndServe(addr, mux)
}

func watchSignals(cancel context.CancelFunc, log interface{ Info(string, ...interface{}) }) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("received interrupt, shutting down")
	cancel()
}
