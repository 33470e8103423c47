package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/silveragent/internal/agent"
	"github.com/rewired-gh/silveragent/internal/api"
	"github.com/rewired-gh/silveragent/internal/config"
	"github.com/rewired-gh/silveragent/internal/journal"
	"github.com/rewired-gh/silveragent/internal/logger"
	"github.com/rewired-gh/silveragent/internal/models"
	"github.com/rewired-gh/silveragent/internal/pricing"
	"github.com/rewired-gh/silveragent/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "silveragent",
	Short: "silveragent - budget-aware silver price collection agent",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent with the snapshot API and notifications",
	RunE:  runAgent,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a fixed number of cycles on simulated time and print the final snapshot",
	RunE:  runSimulate,
}

var (
	configPath string

	simCycles int
	simSeed   uint64
	simMode   string
)

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to configuration file")

	simulateCmd.Flags().IntVarP(&simCycles, "cycles", "n", 20, "Number of collection cycles")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 1, "Random seed")
	simulateCmd.Flags().StringVar(&simMode, "mode", string(models.ModeAdaptive), "Agent mode")

	rootCmd.AddCommand(runCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve wires the agent to its sinks and the HTTP surface and blocks until
// ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	mode, err := models.ParseMode(cfg.Agent.Mode)
	if err != nil {
		return err
	}

	var (
		sinks    []agent.DecisionSink
		apiStore api.Journal
	)

	if cfg.Journal.Enabled {
		jr, err := journal.New(cfg.Journal.MaxDecisions, cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
		defer func() {
			if err := jr.Close(); err != nil {
				logger.Error("Failed to close journal: %v", err)
			}
		}()
		sinks = append(sinks, jr)
		apiStore = jr
		logger.Info("Decision journal opened at %s", cfg.Journal.DBPath)
	}

	var tg *telegram.Client
	if cfg.Telegram.Enabled {
		tg, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase, cfg.Telegram.MinInterval)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		defer tg.Wait()
		sinks = append(sinks, tg)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	opts := []agent.Option{agent.WithSinks(sinks...)}
	if cfg.Agent.Seed != 0 {
		opts = append(opts, agent.WithRand(pricing.NewRand(uint64(cfg.Agent.Seed))))
	}
	a := agent.New(agent.Config{
		Mode:              mode,
		TotalBudget:       cfg.Agent.TotalBudget,
		CountdownInterval: cfg.Agent.CountdownInterval,
		StalenessInterval: cfg.Agent.StalenessInterval,
	}, opts...)

	if tg != nil {
		tg.SetStatusFunc(func() string { return statusSummary(a.Snapshot()) })
		tg.ListenForCommands(ctx)
	}

	var srv *http.Server
	if cfg.Server.Enabled {
		srv = api.NewServer(cfg.Server.Addr, api.NewRouter(api.NewHandlers(a, apiStore), cfg.Server.AllowedOrigins))
		go func() {
			logger.Info("API server listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("API server failed: %v", err)
			}
		}()
	}

	logger.Info("Starting agent (mode: %s, budget: %d, sources: %d)",
		mode, cfg.Agent.TotalBudget, len(a.Snapshot().Sources))

	runErr := a.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("API server shutdown: %v", err)
		}
	}
	logger.Info("Service stopped")
	return runErr
}

func statusSummary(s agent.Snapshot) string {
	active := 0
	for _, src := range s.Sources {
		if src.Status == models.StatusActive {
			active++
		}
	}
	return fmt.Sprintf("Price $%.2f (%s volatility), mode %s\nSources active: %d/%d\nCollected %d, skipped %d, saved %d\nNext collection in %ds",
		s.CurrentPrice, s.Agent.Volatility, s.Agent.Mode,
		active, len(s.Sources),
		s.Agent.CollectionsToday, s.Agent.SkippedToday, s.Agent.ResourcesSaved,
		s.Agent.NextCollectionIn)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	return simulate(cmd.OutOrStdout(), simCycles, simSeed, simMode)
}

// simulationStart anchors simulated time so output is reproducible.
var simulationStart = time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

// simulate runs cycles on a mock clock. Between cycles it advances time one
// second at a time, ticking the countdown every second and sweeping
// staleness every two seconds, then prints the final snapshot as JSON.
func simulate(w io.Writer, cycles int, seed uint64, modeName string) error {
	if cycles < 1 {
		return fmt.Errorf("cycles must be at least 1")
	}
	mode, err := models.ParseMode(modeName)
	if err != nil {
		return err
	}

	mock := clock.NewMock()
	mock.Set(simulationStart)

	cfg := agent.DefaultConfig()
	cfg.Mode = mode
	a := agent.New(cfg, agent.WithClock(mock), agent.WithRand(pricing.NewRand(seed)))

	elapsed := 0
	for i := 0; i < cycles; i++ {
		res := a.RunCycle()
		if i == cycles-1 {
			break
		}
		steps := int(res.NextInterval.Round(time.Second) / time.Second)
		for s := 0; s < steps; s++ {
			mock.Add(time.Second)
			elapsed++
			a.TickCountdown()
			if elapsed%2 == 0 {
				a.SweepStaleness()
			}
		}
	}

	out, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
