package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/putaway/internal/core/domain"
)

const (
	DefaultWorkers     = 4
	DefaultUnitTimeout = 5 * time.Second
)

// Runner drives the placement service over a batch of unlocated units with a
// bounded worker pool. The caller supplies units oldest receipt first;
// results come back in the same order regardless of which worker finished
// when.
type Runner struct {
	svc         *PlacementService
	workers     int
	unitTimeout time.Duration
	logger      *zap.Logger
}

func NewRunner(svc *PlacementService, workers int, unitTimeout time.Duration, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if unitTimeout <= 0 {
		unitTimeout = DefaultUnitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{svc: svc, workers: workers, unitTimeout: unitTimeout, logger: logger}
}

// Run places every unit and returns one result per unit, input order
// preserved. Per-unit failures are isolated; the batch always runs to
// completion unless ctx itself is done.
func (r *Runner) Run(ctx context.Context, units []domain.Unit) []Result {
	results := make([]Result, len(units))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				unitCtx, cancel := context.WithTimeout(ctx, r.unitTimeout)
				results[i] = r.svc.Place(unitCtx, units[i])
				cancel()
			}
		}()
	}

	for i := range units {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	committed := 0
	for _, res := range results {
		if res.Status == StatusCommitted {
			committed++
		}
	}
	r.logger.Info("batch complete",
		zap.Int("units", len(units)),
		zap.Int("committed", committed),
		zap.Int("failed", len(units)-committed))

	return results
}
