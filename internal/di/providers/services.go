package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/quicksafe/quicksafe-server/internal/advisory"
	"github.com/quicksafe/quicksafe-server/internal/catalog"
	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/logger"
	"github.com/quicksafe/quicksafe-server/internal/service"
)

// ProvideCatalog provides the location catalog.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	log.Info("Location catalog loaded", "locations", len(cat.Known()), "path", cfg.Catalog.Path)
	return cat, nil
}

// AdvisorHandle carries the advisor and whether it reaches a live backend.
type AdvisorHandle struct {
	advisory.Advisor
	Live bool
}

// ProvideAdvisor provides the advisory backend. Without a credential, or when
// the client cannot be built, every advisory is the static fallback.
func ProvideAdvisor(i do.Injector) (*AdvisorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.HasAdvisoryKey() {
		log.Warn("No advisory API key configured, using fallback advisories")
		return &AdvisorHandle{Advisor: advisory.Static{}}, nil
	}

	gemini, err := advisory.NewGemini(context.Background(), advisory.GeminiConfig{
		APIKey:          cfg.Advisory.APIKey,
		Model:           cfg.Advisory.Model,
		Temperature:     cfg.Advisory.Temperature,
		MaxOutputTokens: cfg.Advisory.MaxOutputTokens,
	})
	if err != nil {
		log.Warn("Advisory client unavailable, using fallback advisories", "error", err)
		return &AdvisorHandle{Advisor: advisory.Static{}}, nil
	}

	log.Info("Advisory client ready", "model", gemini.Model())
	return &AdvisorHandle{
		Advisor: advisory.NewClient(gemini, log.Component("advisory")),
		Live:    true,
	}, nil
}

// ReportServiceHandle wraps the report service with Shutdownable.
type ReportServiceHandle struct {
	*service.ReportService
	timeout time.Duration
}

// Shutdown implements do.Shutdownable. In-flight submissions get the
// configured shutdown timeout to reach their receipt.
func (h *ReportServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.ReportService.Shutdown(ctx)
}

// ProvideReportService provides the form session service.
func ProvideReportService(i do.Injector) (*ReportServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	advisor := do.MustInvoke[*AdvisorHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc := service.NewReportService(cat, advisor.Advisor, sseHandle.Manager, cfg.Report, log.Component("report"))
	return &ReportServiceHandle{ReportService: svc, timeout: cfg.Server.ShutdownTimeout}, nil
}
