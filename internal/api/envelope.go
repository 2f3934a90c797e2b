package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/quicksafe/quicksafe-server/internal/http/response"
)

// EnvelopeTransformer wraps every typed API body in response.Envelope.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope, *response.Envelope:
		return v, nil
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case *huma.ErrorModel:
		return response.Fail(statusToCode(body.Status), body.Detail, body.Errors), nil
	default:
		return response.Ok(v), nil
	}
}
