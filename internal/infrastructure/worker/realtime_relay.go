package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Relay blocks forwarding messages until ctx is done or the source fails
type Relay interface {
	Relay(ctx context.Context) error
}

// RelayFunc adapts a function to Relay
type RelayFunc func(ctx context.Context) error

// Relay calls f
func (f RelayFunc) Relay(ctx context.Context) error { return f(ctx) }

// RealtimeRelayWorker keeps a cross-instance relay running, restarting it
// after a backoff when the connection drops.
type RealtimeRelayWorker struct {
	relay   Relay
	backoff time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewRealtimeRelayWorker creates the worker; backoff defaults to 2s
func NewRealtimeRelayWorker(relay Relay, backoff time.Duration, logger *zap.Logger) *RealtimeRelayWorker {
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &RealtimeRelayWorker{
		relay:   relay,
		backoff: backoff,
		logger:  logger,
	}
}

// Start launches the relay loop
func (w *RealtimeRelayWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("realtime relay already running")
	}

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the relay and waits for it to return
func (w *RealtimeRelayWorker) Stop() error {
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
	return nil
}

// Name returns the worker name for identification
func (w *RealtimeRelayWorker) Name() string {
	return "RealtimeRelay"
}

func (w *RealtimeRelayWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := w.relay.Relay(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("Realtime relay failed, restarting",
				zap.Duration("backoff", w.backoff),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff):
		}
	}
}
