package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quicksafe/quicksafe-server/internal/service"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "openSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Open a report form",
		Description:   "Starts a form session for a location. An empty location opens the default one.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleOpenSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get a report form",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "selectScore",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/score",
		Summary:     "Select the safety score",
		Tags:        []string{"Sessions"},
	}, s.handleSelectScore)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/tags/{tag}",
		Summary:     "Toggle a safety tag",
		Tags:        []string{"Sessions"},
	}, s.handleToggleTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "setComment",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/comment",
		Summary:     "Set the free-text comment",
		Tags:        []string{"Sessions"},
	}, s.handleSetComment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "submitSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions/{id}/submit",
		Summary:       "Submit the report",
		Description:   "Starts the submission and returns 202 while it runs. Without a score the form is returned unchanged with 200.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSubmit)
}

// SessionOutput contains one form session.
type SessionOutput struct {
	Body *service.SessionView
}

// SubmitOutput contains the form after a submit request.
type SubmitOutput struct {
	Status int
	Body   *service.SessionView
}

// OpenSessionInput selects the location for a new form.
type OpenSessionInput struct {
	Body struct {
		LocationID string `json:"location_id,omitempty" maxLength:"64" doc:"Location id; empty for the default location"`
	}
}

// SessionPathInput identifies a session.
type SessionPathInput struct {
	ID string `path:"id" doc:"Session id"`
}

// SelectScoreInput carries the score.
type SelectScoreInput struct {
	ID   string `path:"id" doc:"Session id"`
	Body struct {
		Score int `json:"score" doc:"Safety score, 1 (danger) to 5 (optimal)"`
	}
}

// ToggleTagInput names the tag to toggle.
type ToggleTagInput struct {
	ID  string `path:"id" doc:"Session id"`
	Tag string `path:"tag" doc:"Tag id"`
}

// SetCommentInput carries the comment.
type SetCommentInput struct {
	ID   string `path:"id" doc:"Session id"`
	Body struct {
		Comment string `json:"comment" doc:"Optional free text"`
	}
}

func (s *Server) handleOpenSession(ctx context.Context, input *OpenSessionInput) (*SessionOutput, error) {
	view, err := s.services.Reports.Open(ctx, input.Body.LocationID, getClientIP(ctx))
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: view}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *SessionPathInput) (*SessionOutput, error) {
	view, err := s.services.Reports.Get(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: view}, nil
}

func (s *Server) handleSelectScore(ctx context.Context, input *SelectScoreInput) (*SessionOutput, error) {
	view, err := s.services.Reports.SelectScore(ctx, input.ID, input.Body.Score)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: view}, nil
}

func (s *Server) handleToggleTag(ctx context.Context, input *ToggleTagInput) (*SessionOutput, error) {
	view, err := s.services.Reports.ToggleTag(ctx, input.ID, input.Tag)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: view}, nil
}

func (s *Server) handleSetComment(ctx context.Context, input *SetCommentInput) (*SessionOutput, error) {
	view, err := s.services.Reports.SetComment(ctx, input.ID, input.Body.Comment)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: view}, nil
}

func (s *Server) handleSubmit(ctx context.Context, input *SessionPathInput) (*SubmitOutput, error) {
	view, submitted, err := s.services.Reports.Submit(ctx, input.ID, getClientIP(ctx))
	if err != nil {
		return nil, toAPIError(err)
	}
	status := http.StatusAccepted
	if !submitted {
		status = http.StatusOK
	}
	return &SubmitOutput{Status: status, Body: view}, nil
}
