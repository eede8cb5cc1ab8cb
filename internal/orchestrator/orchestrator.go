// Package orchestrator implements C13: cron wiring over internal/scheduler
// for every job row in spec.md §4.13, calendar-gated per I10, with the
// real-mode confirmation delay sitting in front of the first trading
// action of the day.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/internal/clock"
	"github.com/hanbat-quant/sentinel/internal/collectors"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/intraday"
	"github.com/hanbat-quant/sentinel/internal/learning"
	"github.com/hanbat-quant/sentinel/internal/morning"
	"github.com/hanbat-quant/sentinel/internal/performance"
	"github.com/hanbat-quant/sentinel/internal/position"
	"github.com/hanbat-quant/sentinel/internal/rag"
	"github.com/hanbat-quant/sentinel/internal/scheduler"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/internal/watchlist"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// Notifier is the narrow C14 dependency the orchestrator needs for
// end-of-cycle summaries (weekly report, settlement results).
type Notifier interface {
	SendText(ctx context.Context, message string) error
}

// Deps bundles every component a cron row in spec.md §4.13 calls into.
type Deps struct {
	Clock       *clock.Clock
	FanOut      *collectors.FanOut
	Morning     *morning.Pipeline
	Watchlist   *watchlist.State
	Intraday    *intraday.Watcher
	Position    *position.Manager
	Performance *performance.Tracker
	Learning    *learning.Batch
	PickRepo    *store.PickRepository
	RAGStore    *rag.Store
	RAGRepo     *store.RAGRepository
	Notifier    Notifier
	Cache       interface {
		Get() (contracts.Cache, bool)
	}
	Config *config.Config
	Logger *logger.Logger
}

// Orchestrator owns the scheduler.Scheduler instance and registers every
// cron job spec.md §4.13 names, plus check_exit and theme_batch, against it.
type Orchestrator struct {
	deps      Deps
	scheduler *scheduler.Scheduler
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:      deps,
		scheduler: scheduler.New(deps.Logger),
	}
}

// Wire registers every cron job and returns the underlying scheduler so
// cmd/sentinel can Start/Stop it and expose job-status subcommands.
func (o *Orchestrator) Wire() (*scheduler.Scheduler, error) {
	jobs := []scheduler.Job{
		&dataCollectorJob{deps: o.deps},
		&morningBotJob{deps: o.deps},
		&rtStartJob{deps: o.deps},
		&checkExitJob{deps: o.deps},
		&forceCloseJob{deps: o.deps},
		&finalCloseJob{deps: o.deps},
		&rtStopJob{deps: o.deps},
		&perfBatchJob{deps: o.deps},
		&weeklyReportJob{deps: o.deps},
		&principlesJob{deps: o.deps},
		&themeBatchJob{deps: o.deps},
		&memoryCompressionJob{deps: o.deps},
	}
	for _, job := range jobs {
		if err := o.scheduler.AddJob(job); err != nil {
			return nil, fmt.Errorf("wire job %s: %w", job.Name(), err)
		}
	}
	return o.scheduler, nil
}

// gateTradingDay implements I10: jobs tied to the live trading session
// (data collection through settlement) no-op on non-trading days instead
// of running against a closed market. Weekly housekeeping jobs (principles
// extraction, memory compression) are deliberately NOT gated this way —
// they run every Sunday regardless of whether Friday was a trading day.
func gateTradingDay(ctx context.Context, c *clock.Clock, jobName string, log *logger.Logger) (bool, error) {
	now := c.Now()
	isTrading, err := c.IsTradingDay(now)
	if err != nil {
		return false, fmt.Errorf("%s: trading-day check: %w", jobName, err)
	}
	if !isTrading {
		log.WithFields(map[string]interface{}{"job": jobName, "date": now.Format("2006-01-02")}).Info("skipped: not a trading day")
		return false, nil
	}
	return true, nil
}

// waitRealModeConfirm implements the real-mode safety delay: the first
// trading-capable action of the day (rt_start) pauses for
// RealModeConfirmDelaySec before arming the intraday watcher, giving an
// operator a window to kill the process if REAL mode was enabled by
// mistake. Paper mode and a disabled confirm flag skip the wait entirely.
func waitRealModeConfirm(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Trading.Mode != string(contracts.ModeREAL) || !cfg.Trading.RealModeConfirmEnabled {
		return nil
	}
	delay := time.Duration(cfg.Trading.RealModeConfirmDelaySec) * time.Second
	log.WithFields(map[string]interface{}{"delay_sec": cfg.Trading.RealModeConfirmDelaySec}).
		Warn("REAL mode armed — waiting confirm delay before starting intraday watcher")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
