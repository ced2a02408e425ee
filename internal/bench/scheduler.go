package bench

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/metric"
)

// Scheduler runs a fixed Config on a cron schedule and stores every result,
// so accuracy and performance can be tracked over time without an operator
// triggering each sweep by hand.
type Scheduler struct {
	cron  *cron.Cron
	store *Store
	cfg   Config
	mu    sync.Mutex

	runsTotal metric.Int64Counter
	runsFail  metric.Int64Counter
}

// NewScheduler builds a scheduler that runs cfg against store on every
// tick of the cron expression later passed to Start (standard 5-field
// cron syntax).
func NewScheduler(store *Store, cfg Config, meter metric.Meter) *Scheduler {
	runsTotal, _ := meter.Int64Counter("hyperball_bench_schedule_runs_total")
	runsFail, _ := meter.Int64Counter("hyperball_bench_schedule_failures_total")
	return &Scheduler{
		cron:      cron.New(),
		store:     store,
		cfg:       cfg,
		runsTotal: runsTotal,
		runsFail:  runsFail,
	}
}

// Start registers the periodic job and starts the underlying cron runner.
func (s *Scheduler) Start(ctx context.Context, cronExpr string) error {
	_, err := s.cron.AddFunc(cronExpr, func() { s.runOnce(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("bench scheduler started", "cron", cronExpr)
	return nil
}

// Stop halts the cron runner, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Run(ctx, s.cfg)
	if err := s.store.Put(ctx, res); err != nil {
		s.runsFail.Add(ctx, 1)
		slog.Error("scheduled benchmark run failed to persist", "error", err, "run_id", res.RunID)
		return
	}
	s.runsTotal.Add(ctx, 1)
	slog.Info("scheduled benchmark run completed", "run_id", res.RunID, "profile_type", res.ProfileType)
}
