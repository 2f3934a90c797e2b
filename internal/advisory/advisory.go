// Package advisory produces the one-line safety tip shown after a report is submitted.
//
// Advisors never fail: every problem with the remote service degrades to one of
// two fixed sentences, so callers can show the result unconditionally.
package advisory

import (
	"context"
	"fmt"
	"strings"
)

// Fallback sentences.
const (
	// FallbackEmpty is used when the service answers without any text.
	FallbackEmpty = "Thank you for your report. Your vigilance helps keep the community safe."
	// FallbackFailure is used when the service cannot be reached or errors.
	FallbackFailure = "Your response has been logged anonymously. Thank you for your contribution."
)

// Advisor turns rating context into a short advisory.
type Advisor interface {
	Advise(ctx context.Context, score int, locationName string, tags []string) string
}

// Completer is a one-shot text completion backend.
// An empty string with a nil error means the backend produced no text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt renders the advisory instructions for one report.
func BuildPrompt(score int, locationName string, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user is reporting safety at \"%s\".\n", locationName)
	fmt.Fprintf(&b, "Rating: %d/5.\n", score)
	if len(tags) > 0 {
		fmt.Fprintf(&b, "The user noticed: %s.\n", strings.Join(tags, ", "))
	}
	b.WriteString("\nAs an official safety assistant, provide a one-sentence advisory (under 15 words).\n")
	b.WriteString("- If 4-5 stars: Acknowledge the safe environment and remind them to stay aware.\n")
	b.WriteString("- If 1-3 stars: Provide a specific, helpful safety tip related to their tags or general safety.\n")
	b.WriteString("Tone: Professional, calm, and supportive.\n")
	return b.String()
}

// Static always answers with the failure fallback. It stands in for the
// remote service when no credential is configured.
type Static struct{}

// Advise implements Advisor.
func (Static) Advise(context.Context, int, string, []string) string {
	return FallbackFailure
}

// AdvisorFunc adapts a plain function to Advisor.
type AdvisorFunc func(ctx context.Context, score int, locationName string, tags []string) string

// Advise implements Advisor.
func (f AdvisorFunc) Advise(ctx context.Context, score int, locationName string, tags []string) string {
	return f(ctx, score, locationName, tags)
}
