package domain

// Location is a QR deployment point.
type Location struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Zone string `json:"zone,omitempty" yaml:"zone"`
	// Known is false when the name was derived from an unrecognized id.
	Known bool `json:"known" yaml:"-"`
}

// DefaultLocationID is used when a route carries no location at all.
const DefaultLocationID = "general"
