package domain

import "time"

// ViewState is the position of a report form in its flow.
type ViewState string

// Form states. The flow only ever moves forward.
const (
	StateRating     ViewState = "rating"
	StateSubmitting ViewState = "submitting"
	StateSuccess    ViewState = "success"
)

// SafetyReport is the in-memory report assembled at submit time. It is never stored.
type SafetyReport struct {
	Score       int       `json:"score"`
	LocationID  string    `json:"location_id"`
	Tags        []string  `json:"tags"`
	Comment     string    `json:"comment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ReferenceID string    `json:"reference_id"`
}

// Receipt is what the reporter sees once the report reaches StateSuccess.
type Receipt struct {
	ReferenceID  string    `json:"reference_id"`
	LocationName string    `json:"location_name"`
	SubmittedAt  time.Time `json:"submitted_at"`
	// SubmittedAtDisplay is SubmittedAt formatted for the receipt.
	SubmittedAtDisplay string `json:"submitted_at_display"`
	Tags               []Tag  `json:"tags"`
	Advisory           string `json:"advisory"`
}

// ReceiptTimeLayout formats the receipt timestamp.
const ReceiptTimeLayout = "1/2/2006, 3:04:05 PM"
