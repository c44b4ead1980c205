package lifecycle

import (
	"context"
	"time"

	"github.com/huangsam/fluentgate/internal/contract"
)

type intervalConfig struct {
	interval  time.Duration
	immediate bool
}

// every runs fn on each tick until ctx is done. A failing or panicking tick is logged
// and the loop carries on with the next one.
func (m *Manager) every(ctx context.Context, name string, cfg intervalConfig, fn func(ctx context.Context) error) {
	interval := cfg.interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := m.logger.With("loop", name)

	tick := func() {
		defer contract.Recover(logger, name)
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Error("loop tick failed", "error", err)
		}
	}

	if cfg.immediate {
		tick()
	}
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			tick()
		}
	}
}
