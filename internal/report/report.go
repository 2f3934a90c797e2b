// Package report implements the rating form flow: Rating -> Submitting -> Success.
//
// A Report is one form session. Inputs are accepted only while rating; Submit
// runs the advisory request alongside a minimum delay and publishes the receipt
// only once both have finished.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quicksafe/quicksafe-server/internal/advisory"
	"github.com/quicksafe/quicksafe-server/internal/domain"
	domainerrors "github.com/quicksafe/quicksafe-server/internal/errors"
	"github.com/quicksafe/quicksafe-server/internal/id"
)

// Default timings.
const (
	DefaultMinSubmitDelay = 2000 * time.Millisecond
	DefaultVerifyDelay    = 1200 * time.Millisecond
)

// Options tunes a Report. Zero values fall back to the defaults.
type Options struct {
	MinSubmitDelay time.Duration
	VerifyDelay    time.Duration
	// Observer receives a view after every state transition.
	Observer func(View)
	// Now overrides the clock for the receipt timestamp.
	Now func() time.Time
	// Location for the receipt timestamp; defaults to time.Local.
	Zone *time.Location
}

// Report is a single form session. It is safe for concurrent use.
type Report struct {
	location  domain.Location
	reference string
	createdAt time.Time
	advisor   advisory.Advisor
	opts      Options

	mu           sync.Mutex
	state        domain.ViewState
	score        int
	tags         domain.TagSet
	comment      string
	report       *domain.SafetyReport
	receipt      *domain.Receipt
	submittingAt time.Time
	completedAt  time.Time
}

// New opens a form session for location.
func New(location domain.Location, advisor advisory.Advisor, opts Options) (*Report, error) {
	if opts.MinSubmitDelay == 0 {
		opts.MinSubmitDelay = DefaultMinSubmitDelay
	}
	if opts.VerifyDelay == 0 {
		opts.VerifyDelay = DefaultVerifyDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Zone == nil {
		opts.Zone = time.Local
	}
	if advisor == nil {
		advisor = advisory.Static{}
	}

	ref, err := id.Reference()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "open report")
	}
	if !id.IsReference(ref) {
		return nil, domainerrors.Wrap(fmt.Errorf("malformed reference %q", ref), domainerrors.CodeInternal, "open report")
	}

	return &Report{
		location:  location,
		reference: ref,
		createdAt: opts.Now(),
		advisor:   advisor,
		opts:      opts,
		state:     domain.StateRating,
		tags:      domain.TagSet{},
	}, nil
}

// Reference returns the display token, fixed for the life of the session.
func (r *Report) Reference() string {
	return r.reference
}

// Location returns the location the form was opened for.
func (r *Report) Location() domain.Location {
	return r.location
}

// State returns the current state.
func (r *Report) State() domain.ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SelectScore chooses the score, replacing any earlier choice.
func (r *Report) SelectScore(score int) error {
	if !domain.ValidScore(score) {
		return domainerrors.Validationf("score must be between %d and %d", domain.MinScore, domain.MaxScore)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRating(); err != nil {
		return err
	}
	r.score = score
	return nil
}

// ToggleTag adds the tag when absent and removes it when present.
func (r *Report) ToggleTag(tagID string) error {
	if _, ok := domain.TagByID(tagID); !ok {
		return domainerrors.Validationf("unknown tag %q", tagID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRating(); err != nil {
		return err
	}
	r.tags.Toggle(tagID)
	return nil
}

// SetComment replaces the free-text comment.
func (r *Report) SetComment(comment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRating(); err != nil {
		return err
	}
	r.comment = comment
	return nil
}

// CanSubmit reports whether Submit would do anything.
func (r *Report) CanSubmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == domain.StateRating && r.score != 0
}

// Verifying reports whether the securing indicator is still showing.
func (r *Report) Verifying() bool {
	return r.opts.Now().Sub(r.createdAt) < r.opts.VerifyDelay
}

// Submit runs the submit protocol and blocks until the report reaches Success.
//
// With no score selected it is a no-op and returns false. Calling it after a
// submission has started returns a conflict error. The advisory call is not
// bounded by any timeout; only ctx can interrupt the wait, in which case the
// report stays in Submitting.
func (r *Report) Submit(ctx context.Context) (bool, error) {
	complete, err := r.Begin()
	if err != nil || complete == nil {
		return false, err
	}
	return true, complete(ctx)
}

// Begin moves the report into Submitting and returns the function that
// finishes the submission. It returns a nil function when no score is
// selected. Callers that must not block run the returned function in a
// goroutine.
func (r *Report) Begin() (func(ctx context.Context) error, error) {
	return r.BeginWith(nil)
}

// BeginWith is Begin with an admission check. admit runs under the report
// lock only once the report is known to be submittable; an error from it
// leaves the report in Rating and is returned as is.
func (r *Report) BeginWith(admit func() error) (func(ctx context.Context) error, error) {
	r.mu.Lock()
	if r.state == domain.StateRating && r.score == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	if err := r.requireRating(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if admit != nil {
		if err := admit(); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}

	r.state = domain.StateSubmitting
	r.submittingAt = time.Now()
	r.report = &domain.SafetyReport{
		Score:       r.score,
		LocationID:  r.location.ID,
		Tags:        r.tags.IDs(),
		Comment:     r.comment,
		Timestamp:   r.createdAt,
		ReferenceID: r.reference,
	}
	score := r.score
	tags := r.tags.InCatalogOrder()
	labels := r.tags.Labels()
	view := r.viewLocked()
	r.mu.Unlock()

	r.notify(view)

	return func(ctx context.Context) error {
		advice, err := r.gate(ctx, score, labels)
		if err != nil {
			return err
		}
		r.finish(tags, advice)
		return nil
	}, nil
}

func (r *Report) finish(tags []domain.Tag, advice string) {
	r.mu.Lock()
	r.state = domain.StateSuccess
	r.completedAt = time.Now()
	r.receipt = &domain.Receipt{
		ReferenceID:        r.reference,
		LocationName:       r.location.Name,
		SubmittedAt:        r.createdAt,
		SubmittedAtDisplay: r.createdAt.In(r.opts.Zone).Format(domain.ReceiptTimeLayout),
		Tags:               tags,
		Advisory:           advice,
	}
	view := r.viewLocked()
	r.mu.Unlock()

	r.notify(view)
}

// gate waits for both the advisory and the minimum delay.
func (r *Report) gate(ctx context.Context, score int, labels []string) (string, error) {
	var advice string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The advisory keeps the caller's context: finishing the delay early
		// must not cancel it.
		advice = r.advisor.Advise(ctx, score, r.location.Name, labels)
		return nil
	})
	g.Go(func() error {
		timer := time.NewTimer(r.opts.MinSubmitDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return advice, nil
}

// Submitted returns the report assembled at submit time, or nil before submit.
func (r *Report) Submitted() *domain.SafetyReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.report == nil {
		return nil
	}
	cp := *r.report
	return &cp
}

// SubmittingSince returns when the report entered Submitting.
func (r *Report) SubmittingSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submittingAt
}

// CompletedAt returns when the report reached Success, or the zero time.
func (r *Report) CompletedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedAt
}

func (r *Report) requireRating() error {
	if r.state != domain.StateRating {
		return domainerrors.Conflictf("report is %s and no longer accepts input", r.state)
	}
	return nil
}

func (r *Report) notify(v View) {
	if r.opts.Observer != nil {
		r.opts.Observer(v)
	}
}
