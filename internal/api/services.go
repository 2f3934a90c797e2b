package api

import (
	"image"

	"github.com/quicksafe/quicksafe-server/internal/catalog"
	"github.com/quicksafe/quicksafe-server/internal/service"
	"github.com/quicksafe/quicksafe-server/internal/sse"
)

// AmbientScene is the running background loop shared by every page.
type AmbientScene interface {
	Snapshot() (*image.RGBA, uint64)
	Size() (w, h int)
	Pointer(x, y float64)
	Touch(points [][2]float64)
}

// Services groups everything the handlers call into.
type Services struct {
	Reports *service.ReportService
	Catalog *catalog.Catalog
	Events  *sse.Handler
	// EventManager is only read for health reporting.
	EventManager *sse.Manager
	// Ambient is the shared background field; nil disables /fx/ambient*.
	Ambient AmbientScene
	// AdvisoryLive reports whether a remote advisory backend is configured.
	AdvisoryLive bool
}
