package wsstream

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// PingWatchdog is the externally injectable automatic-ping policy: a
// token-bucket limiter gates how often an automatic ping may fire,
// independent of any pings the application sends itself through SendPing.
// It only sends pings; it does not close a connection whose pings go
// unanswered.
type PingWatchdog struct {
	engine  *Engine
	limiter *rate.Limiter
}

// NewPingWatchdog builds a watchdog that sends at most one automatic ping
// per interval.
func NewPingWatchdog(engine *Engine, interval time.Duration) *PingWatchdog {
	return &PingWatchdog{engine: engine, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Run sends a ping every tick the limiter allows, until ctx is cancelled or
// the connection has already sent its own close frame. Callers run this in
// its own goroutine and cancel ctx when the connection's handler returns.
func (w *PingWatchdog) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.engine.ServerTerminated() {
				return
			}
			if !w.limiter.Allow() {
				continue
			}
			_ = w.engine.SendPing(nil)
		}
	}
}
