// Package di provides dependency injection configuration for the QuickSafe server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/quicksafe/quicksafe-server/internal/catalog"
	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/di/providers"
	"github.com/quicksafe/quicksafe-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Events
	do.Provide(injector, providers.ProvideSSEManager)

	// Business services
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideAdvisor)
	do.Provide(injector, providers.ProvideReportService)

	// Workers
	do.Provide(injector, providers.ProvideAmbient)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*catalog.Catalog](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.AdvisorHandle](injector)
	_ = do.MustInvoke[*providers.ReportServiceHandle](injector)

	if _, err := do.Invoke[*providers.AmbientHandle](injector); err != nil {
		return err
	}

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
