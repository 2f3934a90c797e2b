package report

import (
	"github.com/quicksafe/quicksafe-server/internal/domain"
)

// View is a point-in-time snapshot of a report for rendering.
type View struct {
	State        domain.ViewState `json:"state"`
	Reference    string           `json:"reference"`
	LocationID   string           `json:"location_id"`
	LocationName string           `json:"location_name"`
	Zone         string           `json:"zone,omitempty"`
	Score        int              `json:"score"`
	Tags         []string         `json:"tags"`
	Comment      string           `json:"comment"`
	Verifying    bool             `json:"verifying"`
	StatusLine   string           `json:"status_line"`
	CanSubmit    bool             `json:"can_submit"`
	Receipt      *domain.Receipt  `json:"receipt,omitempty"`
}

// Snapshot returns the current view.
func (r *Report) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Report) viewLocked() View {
	verifying := r.Verifying()
	status := "Reporting: " + r.location.Name
	if verifying {
		status = "Securing Node..."
	}

	v := View{
		State:        r.state,
		Reference:    r.reference,
		LocationID:   r.location.ID,
		LocationName: r.location.Name,
		Zone:         r.location.Zone,
		Score:        r.score,
		Tags:         r.tags.IDs(),
		Comment:      r.comment,
		Verifying:    verifying,
		StatusLine:   status,
		CanSubmit:    r.state == domain.StateRating && r.score != 0,
	}
	if r.receipt != nil {
		receipt := *r.receipt
		v.Receipt = &receipt
	}
	return v
}
