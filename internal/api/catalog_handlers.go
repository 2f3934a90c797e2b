package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quicksafe/quicksafe-server/internal/domain"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLocations",
		Method:      http.MethodGet,
		Path:        "/api/v1/locations",
		Summary:     "List known locations",
		Tags:        []string{"Catalog"},
	}, s.handleListLocations)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLocation",
		Method:      http.MethodGet,
		Path:        "/api/v1/locations/{id}",
		Summary:     "Resolve a location",
		Description: "Returns the catalog entry, or a name derived from the id for unknown locations",
		Tags:        []string{"Catalog"},
	}, s.handleGetLocation)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List safety tags",
		Tags:        []string{"Catalog"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRatings",
		Method:      http.MethodGet,
		Path:        "/api/v1/ratings",
		Summary:     "List rating levels",
		Tags:        []string{"Catalog"},
	}, s.handleListRatings)
}

// LocationOutput contains a single resolved location.
type LocationOutput struct {
	Body domain.Location
}

// LocationsOutput lists locations.
type LocationsOutput struct {
	Body []domain.Location
}

// TagsOutput lists the tag catalog.
type TagsOutput struct {
	Body []domain.Tag
}

// RatingsOutput lists the rating levels.
type RatingsOutput struct {
	Body []domain.RatingLevel
}

// GetLocationInput contains the location id.
type GetLocationInput struct {
	ID string `path:"id" maxLength:"64" doc:"Location id"`
}

func (s *Server) handleListLocations(_ context.Context, _ *struct{}) (*LocationsOutput, error) {
	return &LocationsOutput{Body: s.services.Catalog.Known()}, nil
}

func (s *Server) handleGetLocation(_ context.Context, input *GetLocationInput) (*LocationOutput, error) {
	return &LocationOutput{Body: s.services.Catalog.Resolve(input.ID)}, nil
}

func (s *Server) handleListTags(_ context.Context, _ *struct{}) (*TagsOutput, error) {
	return &TagsOutput{Body: domain.SafetyTags}, nil
}

func (s *Server) handleListRatings(_ context.Context, _ *struct{}) (*RatingsOutput, error) {
	return &RatingsOutput{Body: domain.RatingLevels}, nil
}
