package domain

import "slices"

// Tag is one environmental observation a reporter can attach to a rating.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// SafetyTags is the fixed tag catalog, in display order.
var SafetyTags = []Tag{
	{ID: "well-lit", Label: "Well Lit", Icon: "fa-lightbulb"},
	{ID: "poor-lighting", Label: "Dim Lighting", Icon: "fa-moon"},
	{ID: "crowded", Label: "Crowded", Icon: "fa-users"},
	{ID: "deserted", Label: "Empty/Deserted", Icon: "fa-user-slash"},
	{ID: "security-visible", Label: "Security Seen", Icon: "fa-user-shield"},
	{ID: "clean", Label: "Clean Area", Icon: "fa-sparkles"},
	{ID: "maintenance-needed", Label: "Needs Repair", Icon: "fa-tools"},
	{ID: "safe-vibe", Label: "Safe Vibe", Icon: "fa-heart"},
}

// TagByID looks a tag up in the catalog.
func TagByID(id string) (Tag, bool) {
	i := slices.IndexFunc(SafetyTags, func(t Tag) bool { return t.ID == id })
	if i < 0 {
		return Tag{}, false
	}
	return SafetyTags[i], true
}

// TagSet is an unordered set of selected tag ids.
type TagSet map[string]struct{}

// Toggle adds id when absent and removes it when present.
func (s TagSet) Toggle(id string) {
	if _, ok := s[id]; ok {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

// Has reports whether id is selected.
func (s TagSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// InCatalogOrder returns the selected tags ordered as in SafetyTags,
// regardless of the order they were selected in.
func (s TagSet) InCatalogOrder() []Tag {
	out := make([]Tag, 0, len(s))
	for _, t := range SafetyTags {
		if s.Has(t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// Labels returns the catalog-ordered labels of the selected tags.
func (s TagSet) Labels() []string {
	tags := s.InCatalogOrder()
	labels := make([]string, len(tags))
	for i, t := range tags {
		labels[i] = t.Label
	}
	return labels
}

// IDs returns the catalog-ordered ids of the selected tags.
func (s TagSet) IDs() []string {
	tags := s.InCatalogOrder()
	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

// Clone copies the set.
func (s TagSet) Clone() TagSet {
	out := make(TagSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
