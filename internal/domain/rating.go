package domain

// Score bounds for a safety rating.
const (
	MinScore = 1
	MaxScore = 5
)

// RatingLevel describes one selectable score on the form.
type RatingLevel struct {
	Score int    `json:"score"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// RatingLevels lists the scores from most to least dangerous.
var RatingLevels = []RatingLevel{
	{Score: 1, Label: "Danger", Icon: "fa-radiation"},
	{Score: 2, Label: "Caution", Icon: "fa-triangle-exclamation"},
	{Score: 3, Label: "Neutral", Icon: "fa-circle-dot"},
	{Score: 4, Label: "Secure", Icon: "fa-shield-check"},
	{Score: 5, Label: "Optimal", Icon: "fa-shield-heart"},
}

// ValidScore reports whether n is a selectable score.
func ValidScore(n int) bool {
	return n >= MinScore && n <= MaxScore
}
