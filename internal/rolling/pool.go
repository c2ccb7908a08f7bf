package rolling

import (
	"context"
	"runtime"
	"sync"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/logger"
)

// LoadFunc fetches the full ascending bar series for one ticker.
type LoadFunc func(ctx context.Context, symbol string) ([]contracts.DailyBar, error)

// SymbolResult carries one ticker's computed metrics out of the pool.
// Err is non-nil when the ticker was skipped; the run continues.
type SymbolResult struct {
	Symbol  string
	Metrics []contracts.RollingMetric
	Err     error
}

// Pool fans rolling-stat computation out over a bounded set of workers.
// Run's return is the ranking barrier: no scoring may start before every
// ticker has either produced metrics or been excluded.
type Pool struct {
	engine  *Engine
	workers int
	logger  *logger.Logger
}

func NewPool(engine *Engine, workers int, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Pool{engine: engine, workers: workers, logger: log}
}

// Run loads and computes metrics for every symbol. Failed tickers are
// logged and reported in the excluded map (symbol -> reason); they never
// abort the run.
func (p *Pool) Run(ctx context.Context, symbols []string, load LoadFunc) ([]SymbolResult, map[string]string) {
	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan SymbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, symbolCh, resultCh, load)
		}(i)
	}

	for _, sym := range symbols {
		symbolCh <- sym
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]SymbolResult, 0, len(symbols))
	excluded := make(map[string]string)
	for result := range resultCh {
		results = append(results, result)
		if result.Err != nil {
			excluded[result.Symbol] = result.Err.Error()
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"total":    len(results),
		"excluded": len(excluded),
		"workers":  p.workers,
	}).Info("Rolling stats computation completed")

	return results, excluded
}

func (p *Pool) worker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- SymbolResult, load LoadFunc) {
	for sym := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- SymbolResult{Symbol: sym, Err: ctx.Err()}
			continue
		default:
		}

		bars, err := load(ctx, sym)
		if err != nil {
			p.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": sym,
			}).Warn("Skipping ticker: series load failed")
			resultCh <- SymbolResult{Symbol: sym, Err: err}
			continue
		}

		metrics, err := p.engine.ComputeSeries(sym, bars)
		if err != nil {
			p.logger.WithError(err).WithField("symbol", sym).
				Warn("Skipping ticker: inconsistent series")
			resultCh <- SymbolResult{Symbol: sym, Err: err}
			continue
		}

		resultCh <- SymbolResult{Symbol: sym, Metrics: metrics}
	}
}
