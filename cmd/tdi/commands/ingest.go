package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/internal/ops"
	"golang.beyond.io/tdi-ingest/internal/pipeline"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

var flagPoll bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest traffic reports from the configured drop directories",
	Long: "Runs one cycle per pipeline and exits, or with --poll keeps running a cycle " +
		"every scanner interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runIngest(ctx, config.Get())
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&flagPoll, "poll", false, "keep polling the drop directories every scanner interval")
}

// cycleRunner is the part of an orchestrator the scheduler needs.
type cycleRunner interface {
	Name() string
	RunCycle(ctx context.Context) *core.CycleResult
}

func runIngest(ctx context.Context, cfg config.Config) error {
	logx.StartTimer()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	deps, err := openShared(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var orchestrators []*pipeline.Orchestrator
	intervals := map[string]time.Duration{}
	for _, p := range cfg.Pipelines {
		logx.As().Info().
			Str("pipeline", p.Name).
			Str("description", p.Description).
			Str("source", p.Source.Type).
			Str("root", p.Source.Root()).
			Str("pattern", p.Scanner.Pattern).
			Str("interval", p.Scanner.Interval).
			Int("attempts", p.Retry.Attempts).
			Str("registry", p.Registry.Type).
			Str("store", p.Store.Type).
			Msg("Starting pipeline")

		o, err := buildPipeline(ctx, p, deps, metrics)
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", p.Name, err)
		}
		orchestrators = append(orchestrators, o)
		intervals[p.Name] = config.MustDuration(p.Scanner.Interval)
	}

	if cfg.Ops.Enabled {
		runners := make([]ops.Pipeline, 0, len(orchestrators))
		for _, o := range orchestrators {
			runners = append(runners, o)
		}
		srv := ops.New(cfg.Ops.Address, reg, runners...)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.As().Error().Err(err).Msg("Ops endpoint stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(orchestrators))
	for i, o := range orchestrators {
		i, o := i, o
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = schedule(ctx, o, intervals[o.Name()], flagPoll)
			logx.As().Info().Str("pipeline", o.Name()).Msg("Pipeline stopped")
		}()
	}
	wg.Wait()

	logx.As().Info().Str("total_time", logx.ExecutionTime()).Msg("All pipelines have stopped")
	return errors.Join(errs...)
}

// schedule runs a cycle right away and then, when polling, once per interval until ctx is done.
// A cycle still running when the next tick fires is not overlapped; that tick is skipped.
//
// Returns:
//   - nil when polling, as failed cycles are retried on the next tick.
//   - The cycle error of the single cycle when not polling.
func schedule(ctx context.Context, r cycleRunner, interval time.Duration, poll bool) error {
	res := r.RunCycle(ctx)
	if !poll {
		if res.State == core.StateAborted || res.Err != nil {
			return fmt.Errorf("pipeline %s: cycle %s %s: %w", r.Name(), res.ID, res.State, res.Err)
		}
		return nil
	}

	if interval <= 0 {
		return fmt.Errorf("pipeline %s: poll interval must be greater than zero, got %s", r.Name(), interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}
