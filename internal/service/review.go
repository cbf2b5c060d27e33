package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReviewInterval = 30 * time.Minute

	// StaleOpenMinutes is how long an entry may sit open before the
	// review sweep considers it abandoned and eligible for
	// auto-resolution.
	StaleOpenMinutes = 60

	reviewBatchSize = 100
)

type ReviewResult struct {
	EntriesExamined int `json:"entries_examined"`
	EntriesResolved int `json:"entries_resolved"`
	EntriesSkipped  int `json:"entries_skipped"`
}

// ReviewService periodically sweeps open ledger entries that the user
// never answered and auto-resolves the ones policy allows. It only runs
// when auto-resolution is enabled; otherwise stale entries stay open and
// keep gating retrieval.
type ReviewService struct {
	resolution *ResolutionService
	logger     *zap.Logger

	autoResolve bool
	interval    time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func NewReviewService(resolution *ResolutionService, autoResolve bool, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		resolution:  resolution,
		logger:      logger,
		autoResolve: autoResolve,
		interval:    defaultReviewInterval,
		stopCh:      make(chan struct{}),
	}
}

func (s *ReviewService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *ReviewService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("review worker started",
			zap.Duration("interval", s.interval),
			zap.Bool("auto_resolve", s.autoResolve))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				s.RunReview(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("review worker stopped")
				return
			}
		}
	}()
}

func (s *ReviewService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunReview executes one sweep. Safe to call directly from tests or an
// admin trigger.
func (s *ReviewService) RunReview(ctx context.Context) *ReviewResult {
	result := &ReviewResult{}

	if !s.autoResolve {
		return result
	}

	stale, err := s.resolution.ledger.ListStaleOpen(ctx, StaleOpenMinutes, reviewBatchSize)
	if err != nil {
		s.logger.Error("review sweep failed to list stale entries", zap.Error(err))
		return result
	}

	result.EntriesExamined = len(stale)
	for i := range stale {
		outcome, err := s.resolution.AutoResolve(ctx, &stale[i])
		if err != nil {
			s.logger.Warn("auto-resolution failed",
				zap.String("ledger_id", stale[i].ID.String()),
				zap.Error(err))
			result.EntriesSkipped++
			continue
		}
		s.logger.Info("stale contradiction auto-resolved",
			zap.String("ledger_id", stale[i].ID.String()),
			zap.String("slot", stale[i].Slot),
			zap.String("method", string(outcome.Method)))
		result.EntriesResolved++
	}

	if result.EntriesExamined > 0 {
		s.logger.Info("review sweep completed",
			zap.Int("examined", result.EntriesExamined),
			zap.Int("resolved", result.EntriesResolved),
			zap.Int("skipped", result.EntriesSkipped))
	}
	return result
}
