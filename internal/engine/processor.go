package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SweepProcessor drives the periodic limit-order sweep. The engine does not
// own a scheduler; this runs beside it as the external tick source.
type SweepProcessor struct {
	engine   *Engine
	interval time.Duration
}

func NewSweepProcessor(engine *Engine, interval time.Duration) *SweepProcessor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SweepProcessor{
		engine:   engine,
		interval: interval,
	}
}

// Start begins the sweep loop and blocks until ctx is cancelled.
func (p *SweepProcessor) Start(ctx context.Context) {
	logger := log.With().Str("component", "sweep_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting limit order sweep processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down sweep processor")
			return
		case <-ticker.C:
			p.engine.SweepLimitOrders()
		}
	}
}
