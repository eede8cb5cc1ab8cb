package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hanbat-quant/sentinel/internal/broker/kis"
	"github.com/hanbat-quant/sentinel/internal/cache"
	"github.com/hanbat-quant/sentinel/internal/clock"
	"github.com/hanbat-quant/sentinel/internal/collectors"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/intraday"
	"github.com/hanbat-quant/sentinel/internal/learning"
	"github.com/hanbat-quant/sentinel/internal/llm"
	"github.com/hanbat-quant/sentinel/internal/morning"
	"github.com/hanbat-quant/sentinel/internal/notify"
	"github.com/hanbat-quant/sentinel/internal/orchestrator"
	"github.com/hanbat-quant/sentinel/internal/performance"
	"github.com/hanbat-quant/sentinel/internal/position"
	"github.com/hanbat-quant/sentinel/internal/rag"
	"github.com/hanbat-quant/sentinel/internal/ratelimit"
	"github.com/hanbat-quant/sentinel/internal/scheduler"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/internal/watchlist"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// runCmd starts the full C13 cron daemon: every job in spec.md §4.13 wired
// against its live dependencies, running until Ctrl+C.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 스케줄러 데몬 시작",
	Long: `데이터 수집부터 장후 정산까지 하루 주기로 돌아가는 모든 작업을
등록하고 스케줄러를 시작합니다. Ctrl+C로 종료합니다.

Example:
  go run ./cmd/sentinel run`,
	RunE: runDaemon,
}

// jobCmd groups the scheduler introspection subcommands (list/run/status),
// mirroring the teacher's own scheduler command group one level down.
var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "등록된 작업 조회 및 수동 실행",
}

var (
	jobListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  runJobList,
	}
	jobRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobRun,
	}
	jobStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 통계 조회",
		RunE:  runJobStatus,
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobRunCmd)
	jobCmd.AddCommand(jobStatusCmd)
}

// deps holds every wired component the CLI's run/job subcommands share so
// each only builds the dependency graph once per process.
type deps struct {
	cfg        *config.Config
	log        *logger.Logger
	sched      *scheduler.Scheduler
	dailyCache *cache.DailyCache
}

func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := store.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	httpClient := httputil.New(cfg, log)

	kisCfg := cfg.KIS
	if cfg.Trading.Mode != string(contracts.ModeREAL) {
		kisCfg = cfg.VTS
	}
	limiter := ratelimit.ForMode(kisCfg.IsVirtual, cfg.Thresholds.RateLimitPaper, cfg.Thresholds.RateLimitLive)
	brokerClient := kis.NewClient(kisCfg, httpClient, limiter, log)

	dailyCache := cache.New()
	clk := clock.New(nil)

	sources := collectors.Sources{
		Market:        collectors.NewMarketSource(httpClient, log),
		NewsNaver:     collectors.NewNaverNewsSource(httpClient, log),
		NewsGlobalRSS: collectors.NewGlobalRSSSource(httpClient, log),
		Price:         collectors.NewPriceSource(httpClient, log),
		SectorETF:     collectors.NewSectorETFSource(httpClient, log),
		ShortInterest: collectors.NewShortInterestSource(httpClient, log),
		Geopolitics:   collectors.NewGeopoliticsSource(httpClient, log),
	}
	if cfg.Collectors.DartAPIKey != "" {
		sources.Dart = collectors.NewDartSource(cfg.Collectors.DartAPIKey, log)
		sources.EventCalendar = collectors.NewEventCalendarSource(cfg.Collectors.DartAPIKey, log)
	}
	if cfg.Collectors.NewsAPIKey != "" {
		sources.NewsAPI = collectors.NewNewsAPISource(cfg.Collectors.NewsAPIKey, httpClient, log)
	}
	noTargetsYet := func(context.Context) ([]string, error) { return nil, nil }
	sources.ClosingStrength = collectors.NewClosingStrengthSource(httpClient, log, noTargetsYet)
	sources.VolumeSurge = collectors.NewVolumeSurgeSource(httpClient, log, noTargetsYet)
	sources.FundConcentration = collectors.NewFundConcentrationSource(httpClient, log)

	var notifier notify.Sink
	if cfg.Telegram.Token != "" {
		notifier = notify.NewTelegramSink(cfg.Telegram, httpClient, log)
	}

	collectorTimeout := time.Duration(cfg.Collectors.CollectorTimeoutSec) * time.Second
	fanOut := collectors.NewFanOut(sources, dailyCache, notifierAdapter{notifier}, log, collectorTimeout)

	llmClient := llm.New(cfg.Google.AIAPIKey, httpClient, log)
	ragRepo := store.NewRAGRepository(db)
	ragStore := rag.New(ragRepo)
	pickRepo := store.NewPickRepository(db)
	morningPipeline := morning.New(llmClient, ragStore, pickRepo, log)

	wl := watchlist.New()

	positionRepo := store.NewPositionRepository(db)
	learningRepo := store.NewLearningRepository(db)
	learningBatch := learning.New(learningRepo, llmClient, 5, log)

	onClose := func(ctx context.Context, trade contracts.TradingHistoryEntry) {
		kospiLevel := 0.0
		if snapshot, ok := dailyCache.Get(); ok && snapshot.PriceData != nil {
			kospiLevel = snapshot.PriceData.Kospi.Value
		}
		if err := learningBatch.RecordJournalEntry(ctx, trade, kospiLevel); err != nil {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("journal record failed")
		}
	}
	positionMgr := position.New(brokerClient, positionRepo, cfg.Thresholds, contracts.TradingMode(cfg.Trading.Mode), cfg.Trading.AutoTradeEnabled, log, onClose)
	alertRepo := store.NewAlertRepository(db)

	onAlert := func(ctx context.Context, a intraday.Alert) {
		if notifier != nil {
			msg := fmt.Sprintf("[%s] %s(%s) %.2f%% @ %d원 (%s)", a.DetectedAt, a.StockName, a.StockCode, a.ChangeRate, a.CurrentPrice, a.Source)
			if err := notifier.SendText(ctx, msg); err != nil {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("alert send failed")
			}
		}

		now := time.Now()
		if err := alertRepo.RecordAlert(ctx, contracts.AlertRecord{
			ID: uuid.New().String(), Ticker: a.StockCode, Name: a.StockName,
			AlertTime: now, AlertDate: now.Format("20060102"),
			ChangeRate: a.ChangeRate, DeltaRate: a.DeltaRate,
			Source: a.Source, PriceAtAlert: a.CurrentPrice,
		}); err != nil {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("record alert failed")
		}

		if !isEntrySignal(a.AlertType) {
			return
		}
		regime := wl.MarketEnv()
		sector, _ := wl.Sector(a.StockCode)
		pickType := contracts.DerivePickType(a.Category)
		opened, qty, buyPrice, reason, err := positionMgr.EnterOnSignal(ctx, a.StockCode, a.StockName,
			cfg.Thresholds.PositionBuyAmount, a.Source, pickType, regime, sector)
		if err != nil {
			log.WithFields(map[string]interface{}{"ticker": a.StockCode, "error": err.Error()}).Warn("enter_on_signal failed")
			return
		}
		if !opened {
			log.WithFields(map[string]interface{}{"ticker": a.StockCode, "reason": reason}).Info("enter_on_signal: no entry")
			return
		}
		if notifier != nil {
			msg := fmt.Sprintf("[매수] %s(%s) %d주 @ %d원 (%s)", a.StockName, a.StockCode, qty, buyPrice, a.AlertType)
			if err := notifier.SendText(ctx, msg); err != nil {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("buy notify failed")
			}
		}
	}
	watcher := intraday.New(brokerClient, wl, cfg.Thresholds, log, onAlert)

	tracker := performance.New(brokerClient, alertRepo, cfg.Thresholds, log)

	orch := orchestrator.New(orchestrator.Deps{
		Clock:       clk,
		FanOut:      fanOut,
		Morning:     morningPipeline,
		Watchlist:   wl,
		Intraday:    watcher,
		Position:    positionMgr,
		Performance: tracker,
		Learning:    learningBatch,
		PickRepo:    pickRepo,
		RAGStore:    ragStore,
		RAGRepo:     ragRepo,
		Notifier:    notifierAdapter{notifier},
		Cache:       dailyCache,
		Config:      cfg,
		Logger:      log,
	})

	sched, err := orch.Wire()
	if err != nil {
		return nil, fmt.Errorf("wire orchestrator: %w", err)
	}

	if cfg.Telegram.Token != "" {
		router := notify.NewCommandRouter(cfg.Telegram.Token, cfg.Telegram.ChatID, httpClient, log)
		registerCommandHandlers(router, wl, positionRepo, learningRepo, contracts.TradingMode(cfg.Trading.Mode), dailyCache)
		go func() {
			if err := router.Run(context.Background()); err != nil {
				log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("telegram command router stopped")
			}
		}()
	}

	return &deps{cfg: cfg, log: log, sched: sched, dailyCache: dailyCache}, nil
}

// isEntrySignal distinguishes C8's buy-pressure alerts (surge momentum,
// bid wall) — which propose a new position — from its price-target/
// price-stop alerts, which are informational about a pick already held or
// passed over and never trigger C9's entry flow.
func isEntrySignal(t contracts.AlertType) bool {
	return t == contracts.AlertSurgeMomentum || t == contracts.AlertBidWall
}

// notifierAdapter lets a possibly-nil notify.Sink satisfy the narrower
// Notifier interfaces internal/collectors and internal/orchestrator expect,
// without either package importing internal/notify directly.
type notifierAdapter struct{ sink notify.Sink }

func (n notifierAdapter) SendText(ctx context.Context, message string) error {
	if n.sink == nil {
		return nil
	}
	return n.sink.SendText(ctx, message)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sentinel Scheduler ===")

	d, err := buildDeps()
	if err != nil {
		return err
	}

	d.sched.Start()
	fmt.Println("등록된 작업:")
	for _, name := range d.sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\n종료 중...")
	d.sched.Stop()
	return nil
}

func runJobList(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	for _, name := range d.sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runJobRun(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	return d.sched.RunJob(args[0])
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	for name, stat := range d.sched.GetJobStats() {
		fmt.Printf("%s: schedule=%s runs=%d success=%d (%.1f%%) failures=%d\n",
			name, stat.Schedule, stat.TotalRuns, stat.SuccessCount, stat.SuccessRate*100, stat.FailureCount)
	}
	return nil
}
