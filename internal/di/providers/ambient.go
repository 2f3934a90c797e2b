package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/fx/field"
	"github.com/quicksafe/quicksafe-server/internal/fx/loop"
	"github.com/quicksafe/quicksafe-server/internal/logger"
)

// AmbientHandle wraps the shared background field loop. Loop is nil when
// the field is disabled.
type AmbientHandle struct {
	Loop *loop.Loop
}

// Shutdown implements do.Shutdownable.
func (h *AmbientHandle) Shutdown() error {
	if h.Loop != nil {
		h.Loop.Stop()
	}
	return nil
}

// ProvideAmbient provides the background field every page shows.
func ProvideAmbient(i do.Injector) (*AmbientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Ambient.Enabled {
		log.Info("Ambient field disabled by configuration")
		return &AmbientHandle{}, nil
	}

	f, err := field.New(field.DefaultConfig(), cfg.Ambient.Width, cfg.Ambient.Height)
	if err != nil {
		return nil, err
	}

	l := loop.New(f, cfg.Ambient.Width, cfg.Ambient.Height,
		loop.WithInterval(time.Second/time.Duration(cfg.Ambient.FPS)))
	if err := l.Start(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Ambient field started",
		"width", cfg.Ambient.Width,
		"height", cfg.Ambient.Height,
		"fps", cfg.Ambient.FPS,
	)
	return &AmbientHandle{Loop: l}, nil
}
