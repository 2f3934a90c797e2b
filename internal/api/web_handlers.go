package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quicksafe/quicksafe-server/internal/domain"
)

//go:embed templates/*.html
var templates embed.FS

type views struct {
	home   *template.Template
	report *template.Template
	poster *template.Template
}

func parseViews() (*views, error) {
	parse := func(files ...string) (*template.Template, error) {
		patterns := make([]string, len(files))
		for i, f := range files {
			patterns[i] = "templates/" + f
		}
		t, err := template.ParseFS(templates, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %v: %w", files, err)
		}
		return t, nil
	}

	home, err := parse("layout.html", "home.html")
	if err != nil {
		return nil, err
	}
	report, err := parse("layout.html", "report.html")
	if err != nil {
		return nil, err
	}
	// The poster is printed on paper, so it does not share the dark layout.
	poster, err := parse("poster.html")
	if err != nil {
		return nil, err
	}
	return &views{home: home, report: report, poster: poster}, nil
}

type homePageData struct {
	QRImageURL string
	ReportURL  string
	Locations  []domain.Location
}

type reportPageData struct {
	Location domain.Location
	Tags     []domain.Tag
	Ratings  []domain.RatingLevel
}

type posterPageData struct {
	Location   domain.Location
	QRImageURL string
}

// handleHome serves the gateway page with the universal QR.
// GET /
func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.render(w, s.views.home, homePageData{
		QRImageURL: s.cfg.Poster.QRImageURL,
		ReportURL:  "/report/" + domain.DefaultLocationID,
		Locations:  s.services.Catalog.Known(),
	})
}

// handleReport serves the rating form for a location.
// GET /report/{locationId}
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.pageLocation(w, r)
	if !ok {
		return
	}
	s.render(w, s.views.report, reportPageData{
		Location: loc,
		Tags:     domain.SafetyTags,
		Ratings:  domain.RatingLevels,
	})
}

// handlePoster serves the printable poster for a location.
// GET /poster/{locationId}
func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.pageLocation(w, r)
	if !ok {
		return
	}
	s.render(w, s.views.poster, posterPageData{
		Location:   loc,
		QRImageURL: s.cfg.Poster.QRImageURL,
	})
}

// pageLocation resolves the route's location. Ids that could never be a
// location slug are answered with 400.
func (s *Server) pageLocation(w http.ResponseWriter, r *http.Request) (domain.Location, bool) {
	id := chi.URLParam(r, "locationId")
	if id != "" {
		if err := s.validator.Var("locationId", id, "locationid,max=64"); err != nil {
			http.Error(w, "Invalid location", http.StatusBadRequest)
			return domain.Location{}, false
		}
	}
	return s.services.Catalog.Resolve(id), true
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", CacheNoCache)
	if err := t.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute template", "template", t.Name(), "error", err)
	}
}
