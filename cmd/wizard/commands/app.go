package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/uswizard/backend/internal/breadth"
	"github.com/uswizard/backend/internal/calendar"
	"github.com/uswizard/backend/internal/external/nasdaq"
	"github.com/uswizard/backend/internal/external/stockanalysis"
	"github.com/uswizard/backend/internal/external/yahoo"
	"github.com/uswizard/backend/internal/marketdata"
	"github.com/uswizard/backend/internal/pipeline"
	"github.com/uswizard/backend/internal/rolling"
	"github.com/uswizard/backend/internal/scoring"
	"github.com/uswizard/backend/internal/screening"
	"github.com/uswizard/backend/internal/strategy"
	"github.com/uswizard/backend/pkg/config"
	"github.com/uswizard/backend/pkg/database"
	"github.com/uswizard/backend/pkg/httputil"
	"github.com/uswizard/backend/pkg/logger"
	"github.com/uswizard/backend/pkg/redis"
)

// app bundles everything a batch command needs. Built once per
// invocation, closed on exit.
type app struct {
	cfg          *config.Config
	strategyCfg  *strategy.Config
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	calendarRepo *calendar.Repository
	breadthRepo  *breadth.Repository
	rsRepo       *scoring.RSRepository
	reportRepo   *screening.ReportRepository
	orchestrator *pipeline.Orchestrator
	cal          *calendar.Calendar
}

// newApp loads configuration, connects storage, ensures the trading
// calendar exists, and wires the orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	strategyCfg, err := strategy.Load(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	hash, err := strategy.Hash(strategyCfg)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"strategy":      strategyCfg.Meta.StrategyID,
		"strategy_hash": hash[:12],
	}).Info("Strategy loaded")

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	yahooHTTP := httputil.New(log).
		WithRetry(3, time.Second).
		WithRateLimit(cfg.Yahoo.RateLimit)
	nasdaqHTTP := httputil.New(log).
		WithRetry(3, time.Second).
		WithRateLimit(cfg.Nasdaq.RateLimit)

	priceProvider := yahoo.NewClient(yahooHTTP, log, cfg.Yahoo.BaseURL)
	universeProvider := nasdaq.NewClient(nasdaqHTTP, log, cfg.Nasdaq.BaseURL)

	calendarRepo := calendar.NewRepository(db.Pool)
	tickerRepo := marketdata.NewTickerRepository(db.Pool)
	priceRepo := marketdata.NewPriceRepository(db.Pool)
	fundamentalsRepo := marketdata.NewFundamentalsRepository(db.Pool)
	metricRepo := rolling.NewMetricRepository(db.Pool)
	rsRepo := scoring.NewRSRepository(db.Pool)
	breadthRepo := breadth.NewRepository(db.Pool)
	reportRepo := screening.NewReportRepository(db.Pool)

	splitsHTTP := httputil.New(log).WithRetry(2, time.Second)
	syncer := marketdata.NewSyncer(priceProvider, priceRepo, tickerRepo, log).
		WithSplitsSource(stockanalysis.NewClient(splitsHTTP, log))

	sessions, err := calendarRepo.GetAll(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load trading sessions: %w", err)
	}
	if len(sessions) == 0 {
		log.Warn("Trading calendar empty, deriving from benchmark")
		if _, err := pipeline.RefreshSessions(ctx, syncer, priceRepo, calendarRepo, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap calendar: %w", err)
		}
		if sessions, err = calendarRepo.GetAll(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("reload trading sessions: %w", err)
		}
	}
	cal := calendar.New(sessions)

	engine, err := rolling.NewEngine(strategyCfg.RollingConfig())
	if err != nil {
		db.Close()
		return nil, err
	}
	scorer, err := scoring.NewScorer(strategyCfg.ScoringConfig())
	if err != nil {
		db.Close()
		return nil, err
	}
	aggregator, err := breadth.NewAggregator(strategyCfg.BreadthConfig())
	if err != nil {
		db.Close()
		return nil, err
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		StrategyCfg:      strategyCfg,
		Calendar:         cal,
		Universe:         universeProvider,
		Syncer:           syncer,
		Pool:             rolling.NewPool(engine, cfg.Workers, log),
		Scorer:           scorer,
		Breadth:          aggregator,
		Screener:         screening.NewEngine(log),
		CalendarRepo:     calendarRepo,
		TickerRepo:       tickerRepo,
		PriceRepo:        priceRepo,
		FundamentalsRepo: fundamentalsRepo,
		MetricRepo:       metricRepo,
		RSRepo:           rsRepo,
		BreadthRepo:      breadthRepo,
		ReportRepo:       reportRepo,
		Logger:           log,
	})

	return &app{
		cfg:          cfg,
		strategyCfg:  strategyCfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		calendarRepo: calendarRepo,
		breadthRepo:  breadthRepo,
		rsRepo:       rsRepo,
		reportRepo:   reportRepo,
		orchestrator: orchestrator,
		cal:          cal,
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
