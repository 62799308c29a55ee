package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/service"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
)

// GraceSweeperConfig holds configuration for the grace-period sweeper.
type GraceSweeperConfig struct {
	ScanInterval time.Duration
	BatchSize    int
}

// DefaultGraceSweeperConfig returns the default sweeper configuration.
func DefaultGraceSweeperConfig() *GraceSweeperConfig {
	return &GraceSweeperConfig{
		ScanInterval: 1 * time.Minute,
		BatchSize:    100,
	}
}

// GraceSweeper periodically scans for subscriptions whose grace period has
// elapsed and moves them to their terminal state. It is the reconciliation
// backstop: the lifecycle engine reacts to provider notifications, but a
// grace window expiring produces no notification of its own.
type GraceSweeper struct {
	subscriptionRepo repository.SubscriptionRepository
	subscriptions    service.SubscriptionService
	config           *GraceSweeperConfig

	mu               sync.RWMutex
	running          bool
	stopCh           chan struct{}
	totalExpired     int64
	lastScanTime     time.Time
	lastExpiredCount int

	now func() time.Time
}

// GraceSweeperStats reports sweeper activity.
type GraceSweeperStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}

// NewGraceSweeper creates a sweeper over the given repository and lifecycle
// service. A nil config uses the defaults.
func NewGraceSweeper(
	subscriptionRepo repository.SubscriptionRepository,
	subscriptions service.SubscriptionService,
	config *GraceSweeperConfig,
) *GraceSweeper {
	if config == nil {
		config = DefaultGraceSweeperConfig()
	}
	return &GraceSweeper{
		subscriptionRepo: subscriptionRepo,
		subscriptions:    subscriptions,
		config:           config,
		now:              time.Now,
	}
}

// Start begins the periodic scan loop. It returns immediately; the loop runs
// until Stop is called or ctx is canceled.
func (w *GraceSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("grace sweeper already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	logger.Get().InfoContext(ctx, "grace sweeper started",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	go w.run(ctx, stopCh)
	return nil
}

// Stop halts the scan loop. Safe to call when not running.
func (w *GraceSweeper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

// GetStats returns a snapshot of sweeper activity.
func (w *GraceSweeper) GetStats() *GraceSweeperStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &GraceSweeperStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}

func (w *GraceSweeper) run(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass: every subscription whose grace window
// elapsed is expired through the lifecycle service. Per-row failures are
// logged and do not abort the pass.
func (w *GraceSweeper) Sweep(ctx context.Context) {
	asOf := w.now().UTC()
	subs, err := w.subscriptionRepo.ListGraceExpired(ctx, asOf, w.config.BatchSize)
	if err != nil {
		logger.Get().ErrorContext(ctx, "grace sweep scan failed", zap.Error(err))
		return
	}

	expired := 0
	for _, sub := range subs {
		if _, err := w.subscriptions.ExpireGracePeriod(ctx, sub.ID); err != nil {
			// A concurrent payment recovery or cancellation may have moved
			// the subscription since the scan.
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			logger.Get().ErrorContext(ctx, "grace expiry failed",
				zap.String("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		expired++
	}

	w.mu.Lock()
	w.totalExpired += int64(expired)
	w.lastScanTime = asOf
	w.lastExpiredCount = expired
	w.mu.Unlock()

	if expired > 0 {
		logger.Get().InfoContext(ctx, "grace sweep completed",
			zap.Int("expired", expired),
			zap.Int("scanned", len(subs)),
		)
	}
}
