package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/quicksafe/quicksafe-server/internal/errors"
	"github.com/quicksafe/quicksafe-server/internal/validation"
)

type scoreRequest struct {
	Score    int    `json:"score" validate:"required,min=1,max=5"`
	Location string `json:"location_id" validate:"required,locationid,max=64"`
	Tag      string `json:"tag,omitempty" validate:"omitempty,safetytag"`
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	d, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	return d
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(scoreRequest{Score: 3, Location: "central-plaza", Tag: "well-lit"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       scoreRequest
		wantField string
		wantMsg   string
	}{
		{"missing score", scoreRequest{Location: "general"}, "score", "is required"},
		{"score too high", scoreRequest{Score: 6, Location: "general"}, "score", "must not exceed 5"},
		{"bad location", scoreRequest{Score: 2, Location: "../etc"}, "location_id", "must contain only letters, digits, '-' or '_'"},
		{"unknown tag", scoreRequest{Score: 2, Location: "general", Tag: "glowing"}, "tag", "must be a known safety tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, details(t, err)[tt.wantField])
		})
	}
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("tag", "crowded", "safetytag"))

	err := v.Var("tag", "noisy", "safetytag")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	assert.Equal(t, "must be a known safety tag", details(t, err)["tag"])
}
