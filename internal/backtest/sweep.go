package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/alitto/pond"
)

// SweepResult pairs one parameter combination with its run result. Failed
// runs carry the error and a nil result.
type SweepResult struct {
	Strategy StrategySpec
	Result   *Result
	Err      error
}

// Sweep runs the base scenario once per strategy variant on a worker pool.
// Every variant gets its own ledger and simulator, so runs never share
// state. Results come back sorted best Sharpe first, with failed runs at
// the end.
func (e *Engine) Sweep(ctx context.Context, base *Scenario, variants []StrategySpec, workers int) []SweepResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := pond.New(workers, len(variants), pond.MinWorkers(1))
	defer pool.StopAndWait()

	results := make([]SweepResult, len(variants))
	var mu sync.Mutex

	group := pool.Group()
	for i, variant := range variants {
		i, variant := i, variant
		group.Submit(func() {
			sc := *base
			sc.Strategy = variant

			res, err := e.Run(ctx, &sc)
			mu.Lock()
			results[i] = SweepResult{Strategy: variant, Result: res, Err: err}
			mu.Unlock()
		})
	}
	group.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return sweepLess(results[j], results[i])
	})
	return results
}

// sweepLess orders by Sharpe, treating missing Sharpe as worst and failed
// runs as worse still.
func sweepLess(a, b SweepResult) bool {
	if a.Err != nil {
		return b.Err == nil
	}
	if b.Err != nil {
		return false
	}
	as, bs := a.Result.Report.SharpeRatio, b.Result.Report.SharpeRatio
	if as == nil {
		return bs != nil
	}
	if bs == nil {
		return false
	}
	return *as < *bs
}
