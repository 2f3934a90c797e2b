package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quicksafe/quicksafe-server/internal/advisory"
	"github.com/quicksafe/quicksafe-server/internal/catalog"
	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/domain"
	domainerrors "github.com/quicksafe/quicksafe-server/internal/errors"
	"github.com/quicksafe/quicksafe-server/internal/id"
	"github.com/quicksafe/quicksafe-server/internal/ratelimit"
	"github.com/quicksafe/quicksafe-server/internal/report"
	"github.com/quicksafe/quicksafe-server/internal/sse"
	"github.com/quicksafe/quicksafe-server/internal/validation"
)

// EventEmitter publishes session events.
type EventEmitter interface {
	Emit(event sse.Event)
}

// SessionView is a form session as returned to clients.
type SessionView struct {
	ID string `json:"id"`
	report.View
}

type session struct {
	report   *report.Report
	lastSeen time.Time
}

// ReportService owns the in-memory registry of form sessions.
// Sessions are discarded after SessionTTL without activity.
type ReportService struct {
	catalog   *catalog.Catalog
	advisor   advisory.Advisor
	events    EventEmitter
	limiter   *ratelimit.KeyedRateLimiter
	opens     *ratelimit.KeyedRateLimiter
	validator *validation.Validator
	cfg       config.ReportConfig
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session

	// submits tracks in-flight submissions so Shutdown can wait for them.
	submits sync.WaitGroup
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewReportService creates the service and starts its session janitor.
func NewReportService(
	cat *catalog.Catalog,
	advisor advisory.Advisor,
	events EventEmitter,
	cfg config.ReportConfig,
	logger *slog.Logger,
) *ReportService {
	s := &ReportService{
		catalog:   cat,
		advisor:   advisor,
		events:    events,
		limiter:   ratelimit.PerMinute(cfg.SubmitsPerMinute),
		opens:     ratelimit.PerMinute(cfg.OpensPerMinute),
		validator: validation.New(),
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*session),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Open starts a form session for locationID. An empty id opens the default location.
// clientKey identifies the caller for rate limiting.
func (s *ReportService) Open(_ context.Context, locationID, clientKey string) (*SessionView, error) {
	if err := s.validator.Var("location_id", locationID, "omitempty,locationid,max=64"); err != nil {
		return nil, err
	}
	if !s.opens.Allow(clientKey) {
		return nil, domainerrors.RateLimited("too many forms opened, try again shortly")
	}

	sessionID := id.Session()
	rep, err := report.New(s.catalog.Resolve(locationID), s.advisor, report.Options{
		MinSubmitDelay: s.cfg.MinSubmitDelay,
		VerifyDelay:    s.cfg.VerifyDelay,
		Observer:       s.observer(sessionID),
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sessionID] = &session{report: rep, lastSeen: time.Now()}
	total := len(s.sessions)
	s.mu.Unlock()

	s.logger.Debug("report session opened",
		slog.String("session_id", sessionID),
		slog.String("location_id", rep.Location().ID),
		slog.Int("active_sessions", total))

	return s.view(sessionID, rep), nil
}

// Get returns the current view of a session.
func (s *ReportService) Get(_ context.Context, sessionID string) (*SessionView, error) {
	rep, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sessionID, rep), nil
}

// Snapshot adapts Get for the SSE handler.
func (s *ReportService) Snapshot(sessionID string) (any, error) {
	return s.Get(context.Background(), sessionID)
}

// SelectScore sets the session's score.
func (s *ReportService) SelectScore(_ context.Context, sessionID string, score int) (*SessionView, error) {
	rep, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := rep.SelectScore(score); err != nil {
		return nil, err
	}
	return s.view(sessionID, rep), nil
}

// ToggleTag toggles one tag on the session.
func (s *ReportService) ToggleTag(_ context.Context, sessionID, tagID string) (*SessionView, error) {
	rep, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Var("tag", tagID, "safetytag"); err != nil {
		return nil, err
	}
	if err := rep.ToggleTag(tagID); err != nil {
		return nil, err
	}
	return s.view(sessionID, rep), nil
}

// SetComment replaces the session's comment.
func (s *ReportService) SetComment(_ context.Context, sessionID, comment string) (*SessionView, error) {
	rep, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := rep.SetComment(comment); err != nil {
		return nil, err
	}
	return s.view(sessionID, rep), nil
}

// Submit moves the session into Submitting and finishes the submission in
// the background. With no score selected the session is returned unchanged
// and submitted is false. clientKey identifies the caller for rate limiting.
func (s *ReportService) Submit(_ context.Context, sessionID, clientKey string) (view *SessionView, submitted bool, err error) {
	rep, err := s.lookup(sessionID)
	if err != nil {
		return nil, false, err
	}

	// The token is only spent by the submit that wins the transition.
	complete, err := rep.BeginWith(func() error {
		if !s.limiter.Allow(clientKey) {
			return domainerrors.RateLimited("too many reports, try again shortly")
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if complete == nil {
		return s.view(sessionID, rep), false, nil
	}

	view = s.view(sessionID, rep)

	s.submits.Add(1)
	go func() {
		defer s.submits.Done()
		// Navigating away never cancels a submission.
		if err := complete(context.Background()); err != nil {
			s.logger.Error("report submission failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			return
		}
		sent := rep.Submitted()
		s.logger.Debug("report completed",
			slog.String("session_id", sessionID),
			slog.Int("score", sent.Score),
			slog.Int("tags", len(sent.Tags)),
			slog.Duration("elapsed", rep.CompletedAt().Sub(rep.SubmittingSince())))
	}()

	s.logger.Info("report submitted",
		slog.String("session_id", sessionID),
		slog.String("reference", rep.Reference()))
	return view, true, nil
}

// ActiveSessions returns the number of live sessions.
func (s *ReportService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops the janitor and waits for in-flight submissions.
func (s *ReportService) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
	s.limiter.Stop()
	s.opens.Stop()

	finished := make(chan struct{})
	go func() {
		s.submits.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown with report submissions still in flight")
		return ctx.Err()
	}
}

func (s *ReportService) lookup(sessionID string) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domainerrors.NotFoundf("session %s not found", sessionID)
	}
	sess.lastSeen = time.Now()
	return sess.report, nil
}

func (s *ReportService) view(sessionID string, rep *report.Report) *SessionView {
	return &SessionView{ID: sessionID, View: rep.Snapshot()}
}

func (s *ReportService) observer(sessionID string) func(report.View) {
	return func(v report.View) {
		eventType := sse.EventReportSubmitting
		if v.Receipt != nil {
			eventType = sse.EventReportSuccess
		}
		s.events.Emit(sse.NewReportEvent(eventType, sessionID, SessionView{ID: sessionID, View: v}))
	}
}

func (s *ReportService) janitor() {
	defer close(s.stopped)

	interval := s.cfg.SessionTTL / 4
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.expire(now)
		}
	}
}

// expire drops sessions idle for longer than the TTL. A session that is still
// submitting is kept so its receipt can be delivered.
func (s *ReportService) expire(now time.Time) {
	cutoff := now.Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sid, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) && sess.report.State() != domain.StateSubmitting {
			delete(s.sessions, sid)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("expired report sessions",
			slog.Int("removed", removed),
			slog.Int("active_sessions", len(s.sessions)))
	}
}
