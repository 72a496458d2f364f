package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// Reconciler exposes the subset of application functionality required by the worker.
type Reconciler interface {
	ScanDiscrepancies(ctx context.Context) ([]model.Discrepancy, error)
	RepairDiscrepancy(ctx context.Context, d model.Discrepancy) (*model.Result, error)
}

// Sweeper periodically scans for discrepancies and repairs them concurrently.
type Sweeper struct {
	reconciler Reconciler
	interval   time.Duration
	workers    int
	logger     *slog.Logger

	queue  int
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSweeper constructs the sweep worker pool.
func NewSweeper(reconciler Reconciler, interval time.Duration, batchSize, workers int, logger *slog.Logger) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		reconciler: reconciler,
		interval:   interval,
		workers:    workers,
		logger:     logger,
		queue:      batchSize,
	}
}

// Start launches background sweeping.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	jobs := make(chan model.Discrepancy, s.queue)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, jobs)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx, jobs)
}

// Stop cancels the sweep and waits for in-flight repairs to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) dispatch(ctx context.Context, jobs chan<- model.Discrepancy) {
	defer s.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanAndDispatch(ctx, jobs)
		}
	}
}

func (s *Sweeper) scanAndDispatch(ctx context.Context, jobs chan<- model.Discrepancy) {
	found, err := s.reconciler.ScanDiscrepancies(ctx)
	if err != nil {
		s.logger.Error("reconciliation scan failed", slog.String("error", err.Error()))
		return
	}
	for _, d := range found {
		select {
		case <-ctx.Done():
			return
		case jobs <- d:
		}
	}
}

func (s *Sweeper) worker(ctx context.Context, jobs <-chan model.Discrepancy) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-jobs:
			if !ok {
				return
			}
			s.repair(ctx, d)
		}
	}
}

func (s *Sweeper) repair(ctx context.Context, d model.Discrepancy) {
	res, err := s.reconciler.RepairDiscrepancy(ctx, d)
	if err != nil {
		s.logger.Error("discrepancy repair failed",
			slog.String("kind", string(d.Kind)),
			slog.Int64("user_id", d.UserID),
			slog.Int64("application_id", d.ApplicationID),
			slog.Int64("withdrawal_id", d.WithdrawalID),
			slog.String("error", err.Error()),
		)
		return
	}
	if res.Retryable() {
		s.logger.Warn("discrepancy repair left mirrors behind",
			slog.String("kind", string(d.Kind)),
			slog.Int("remaining", len(res.Discrepancies)),
		)
	}
}
