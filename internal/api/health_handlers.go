package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or degraded"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"advisory": s.checkAdvisory(),
		"sessions": {
			Status:  "healthy",
			Message: strconv.Itoa(s.services.Reports.ActiveSessions()) + " active",
		},
	}
	if s.services.EventManager != nil {
		components["sse"] = ComponentHealth{
			Status:  "healthy",
			Message: strconv.Itoa(s.services.EventManager.ClientCount()) + " clients connected",
		}
	}

	overall := "healthy"
	for _, c := range components {
		if c.Status != "healthy" {
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkAdvisory reports degraded when advisories fall back to the static text.
func (s *Server) checkAdvisory() ComponentHealth {
	if !s.services.AdvisoryLive {
		return ComponentHealth{
			Status:  "degraded",
			Message: "no API key configured, using fallback advisories",
		}
	}
	return ComponentHealth{Status: "healthy"}
}
