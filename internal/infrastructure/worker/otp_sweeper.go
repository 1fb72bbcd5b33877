package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredSweeper deletes credentials that expired before now
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// OTPSweeperConfig holds configuration for the OTP sweeper
type OTPSweeperConfig struct {
	Interval time.Duration
}

// DefaultOTPSweeperConfig returns default configuration
func DefaultOTPSweeperConfig() OTPSweeperConfig {
	return OTPSweeperConfig{Interval: time.Minute}
}

// OTPSweeper periodically purges expired batch OTPs
type OTPSweeper struct {
	config  OTPSweeperConfig
	sweeper ExpiredSweeper
	logger  *zap.Logger
	now     func() time.Time

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	isRunning  bool
	sweptTotal int64
}

// NewOTPSweeper creates a new OTP sweeper
func NewOTPSweeper(config OTPSweeperConfig, sweeper ExpiredSweeper, logger *zap.Logger) *OTPSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultOTPSweeperConfig().Interval
	}
	return &OTPSweeper{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the sweep loop
func (w *OTPSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("otp sweeper already running")
	}

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("OTPSweeper started", zap.Duration("interval", w.config.Interval))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *OTPSweeper) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("OTPSweeper stopped", zap.Int64("swept_total", w.SweptTotal()))
	return nil
}

// Name returns the worker name for identification
func (w *OTPSweeper) Name() string {
	return "OTPSweeper"
}

// SweptTotal returns how many credentials this worker has removed
func (w *OTPSweeper) SweptTotal() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sweptTotal
}

func (w *OTPSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *OTPSweeper) sweepOnce(ctx context.Context) {
	n, err := w.sweeper.SweepExpired(ctx, w.now())
	if err != nil {
		w.logger.Error("Failed to sweep expired OTPs", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.sweptTotal += n
	w.mu.Unlock()

	if n > 0 {
		w.logger.Info("Expired OTPs swept", zap.Int64("count", n))
	}
}
