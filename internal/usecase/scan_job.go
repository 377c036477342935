package usecase

import (
	"context"
	"time"

	pkgcache "omniscient/pkg/cache"
	"omniscient/pkg/logger"
	"omniscient/pkg/queue"
)

const (
	scanJobName = "market_scan"
	scanLockTTL = 10 * time.Minute
)

var scanLockKey = pkgcache.Key("scan", "lock")

// ScanJob runs a full watchlist sweep when a scan message is consumed.
// A cache lock keeps replicas from sweeping the same interval twice.
type ScanJob struct {
	scan   *MarketScanUseCase
	locker pkgcache.Service
	log    *logger.Logger
}

func NewScanJob(scan *MarketScanUseCase, locker pkgcache.Service, log *logger.Logger) *ScanJob {
	return &ScanJob{scan: scan, locker: locker, log: log}
}

func (j *ScanJob) Name() string { return scanJobName }
func (j *ScanJob) Type() string { return scanJobName }

func (j *ScanJob) Handle(ctx context.Context, _ interface{}) error {
	if j.locker != nil {
		ok, err := j.locker.TryLock(ctx, scanLockKey, scanLockTTL)
		if err != nil {
			j.log.Warn("scan lock error, sweeping anyway", logger.Error(err))
		} else if !ok {
			j.log.Debug("scan already running elsewhere, skipping")
			return nil
		} else {
			defer func() {
				if err := j.locker.Unlock(context.Background(), scanLockKey); err != nil {
					j.log.Warn("scan unlock error", logger.Error(err))
				}
			}()
		}
	}

	rows, err := j.scan.ScanAll(ctx)
	if err != nil {
		return err
	}
	j.log.Info("scan job finished", logger.Int("items", len(rows)))
	return nil
}

var _ queue.Job = (*ScanJob)(nil)

// ScanScheduler enqueues a sweep on a fixed interval. The queue collapses
// bursty triggers into the use case's single-flight guard, so overlapping
// ticks never run concurrent sweeps.
type ScanScheduler struct {
	publisher queue.QueueService
	interval  time.Duration
	log       *logger.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewScanScheduler(publisher queue.QueueService, interval time.Duration, log *logger.Logger) *ScanScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ScanScheduler{publisher: publisher, interval: interval, log: log}
}

// Start fires one immediate sweep, then one per interval.
func (s *ScanScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.trigger(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.trigger(ctx)
			}
		}
	}()
}

func (s *ScanScheduler) trigger(ctx context.Context) {
	payload := map[string]interface{}{"requested_at": time.Now().UTC().Format(time.RFC3339)}
	if err := s.publisher.PublishMessage(ctx, scanJobName, payload); err != nil {
		s.log.Error("scan enqueue failed", logger.Error(err))
	}
}

func (s *ScanScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}
