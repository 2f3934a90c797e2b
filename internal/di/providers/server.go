package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/quicksafe/quicksafe-server/internal/api"
	"github.com/quicksafe/quicksafe-server/internal/catalog"
	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/logger"
	"github.com/quicksafe/quicksafe-server/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	timeout time.Duration
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	reports := do.MustInvoke[*ReportServiceHandle](i)
	advisor := do.MustInvoke[*AdvisorHandle](i)
	ambient := do.MustInvoke[*AmbientHandle](i)

	services := &api.Services{
		Reports:      reports.ReportService,
		Catalog:      cat,
		Events:       sse.NewHandler(sseHandle.Manager, reports.Snapshot, log.Component("sse")),
		EventManager: sseHandle.Manager,
		AdvisoryLive: advisor.Live,
	}
	if ambient.Loop != nil {
		services.Ambient = ambient.Loop
	}

	handler, err := api.NewServer(services, cfg, log.Component("http"))
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, timeout: cfg.Server.ShutdownTimeout}, nil
}
