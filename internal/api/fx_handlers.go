package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/quicksafe/quicksafe-server/internal/errors"
	"github.com/quicksafe/quicksafe-server/internal/fx/field"
	"github.com/quicksafe/quicksafe-server/internal/fx/loop"
	"github.com/quicksafe/quicksafe-server/internal/fx/trail"
	"github.com/quicksafe/quicksafe-server/internal/http/response"
)

// fieldFrameRequest is the query of GET /api/v1/fx/field.png.
type fieldFrameRequest struct {
	Width   int      `json:"w" validate:"min=1,max=1920"`
	Height  int      `json:"h" validate:"min=1,max=1080"`
	Frames  int      `json:"frames" validate:"min=0,max=600"`
	Variant string   `json:"variant" validate:"omitempty,oneof=square circle"`
	X       *float64 `json:"px" validate:"omitempty,min=-4096,max=4096"`
	Y       *float64 `json:"py" validate:"omitempty,min=-4096,max=4096"`
}

// TrailPoint is one pointer position.
type TrailPoint struct {
	X float64 `json:"x" validate:"min=-4096,max=4096"`
	Y float64 `json:"y" validate:"min=-4096,max=4096"`
}

// trailFrameRequest is the body of POST /api/v1/fx/trail.png.
type trailFrameRequest struct {
	Width  int          `json:"width" validate:"min=1,max=1920"`
	Height int          `json:"height" validate:"min=1,max=1080"`
	Path   []TrailPoint `json:"path" validate:"max=600,dive"`
	Frames int          `json:"frames" validate:"min=0,max=600"`
	Seed   uint64       `json:"seed"`
}

func (s *Server) registerFxRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "ambientInput",
		Method:        http.MethodPost,
		Path:          "/api/v1/fx/ambient/input",
		Summary:       "Move the pointer over the background field",
		Description:   "Coordinates are fractions of the frame size. Touches win over x/y; leave parks the pointer offscreen.",
		Tags:          []string{"Effects"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleAmbientInput)
}

// AmbientPoint is a position as a fraction of the frame size.
type AmbientPoint struct {
	X float64 `json:"x" minimum:"0" maximum:"1"`
	Y float64 `json:"y" minimum:"0" maximum:"1"`
}

// AmbientInputInput carries one pointer or touch update.
type AmbientInputInput struct {
	Body struct {
		X       *float64       `json:"x,omitempty" minimum:"0" maximum:"1" doc:"Pointer x"`
		Y       *float64       `json:"y,omitempty" minimum:"0" maximum:"1" doc:"Pointer y"`
		Touches []AmbientPoint `json:"touches,omitempty" maxItems:"10" doc:"Active touch points"`
		Leave   bool           `json:"leave,omitempty" doc:"The pointer left the page"`
	}
}

func (s *Server) handleAmbientInput(_ context.Context, input *AmbientInputInput) (*struct{}, error) {
	scene := s.services.Ambient
	if scene == nil {
		return nil, toAPIError(domainerrors.NotFoundf("ambient field is disabled"))
	}
	w, h := scene.Size()
	in := input.Body

	switch {
	case in.Leave:
		scene.Pointer(field.OffscreenPointer, field.OffscreenPointer)
	case len(in.Touches) > 0:
		points := make([][2]float64, len(in.Touches))
		for i, p := range in.Touches {
			points[i] = [2]float64{p.X * float64(w), p.Y * float64(h)}
		}
		scene.Touch(points)
	case in.X != nil && in.Y != nil:
		scene.Pointer(*in.X*float64(w), *in.Y*float64(h))
	default:
		return nil, toAPIError(domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"body": "x and y, touches or leave is required",
		}))
	}
	return nil, nil
}

// handleFieldFrame renders the ambient field after the requested number of frames.
// GET /api/v1/fx/field.png?w=&h=&frames=&px=&py=&variant=
func (s *Server) handleFieldFrame(w http.ResponseWriter, r *http.Request) {
	req, err := parseFieldQuery(r)
	if err == nil {
		err = s.validator.Validate(req)
	}
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	cfg := field.DefaultConfig()
	if req.Variant != "" {
		cfg.Variant = field.Variant(req.Variant)
	}
	f, err := field.New(cfg, req.Width, req.Height)
	if err != nil {
		response.HandleError(w, domainerrors.Validation(err.Error()), s.logger)
		return
	}

	var path [][2]float64
	if req.X != nil && req.Y != nil {
		path = [][2]float64{{*req.X, *req.Y}}
	}
	s.writePNG(w, loop.Render(f, req.Width, req.Height, path, req.Frames))
}

// handleTrailFrame replays a pointer path through the cursor trail.
// POST /api/v1/fx/trail.png
func (s *Server) handleTrailFrame(w http.ResponseWriter, r *http.Request) {
	var req trailFrameRequest
	body := http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	tr := trail.New(rand.New(rand.NewPCG(seed, seed)))

	path := make([][2]float64, len(req.Path))
	for i, p := range req.Path {
		path[i] = [2]float64{p.X, p.Y}
	}
	s.writePNG(w, loop.Render(tr, req.Width, req.Height, path, req.Frames))
}

// handleAmbientFrame serves the latest frame of the shared background loop.
// GET /api/v1/fx/ambient.png
func (s *Server) handleAmbientFrame(w http.ResponseWriter, _ *http.Request) {
	if s.services.Ambient == nil {
		response.NotFound(w, "ambient field is disabled", s.logger)
		return
	}
	frame, seq := s.services.Ambient.Snapshot()
	if frame == nil {
		w.Header().Set("Retry-After", "1")
		response.Error(w, http.StatusServiceUnavailable, domainerrors.CodeInternal, "ambient field is warming up", s.logger)
		return
	}
	w.Header().Set("X-Frame-Sequence", strconv.FormatUint(seq, 10))
	s.writePNG(w, frame)
}

func (s *Server) writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		response.InternalError(w, "failed to encode frame", s.logger)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", CacheNoStore)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func parseFieldQuery(r *http.Request) (fieldFrameRequest, error) {
	q := r.URL.Query()
	req := fieldFrameRequest{Width: 640, Height: 360, Frames: 1, Variant: q.Get("variant")}
	details := map[string]string{}

	intParam := func(name string, dst *int) {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				details[name] = "must be an integer"
				return
			}
			*dst = n
		}
	}
	floatParam := func(name string) *float64 {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			details[name] = "must be a finite number"
			return nil
		}
		return &f
	}

	intParam("w", &req.Width)
	intParam("h", &req.Height)
	intParam("frames", &req.Frames)
	req.X = floatParam("px")
	req.Y = floatParam("py")

	if len(details) > 0 {
		return req, domainerrors.ValidationWithDetails("validation failed", details)
	}
	return req, nil
}
