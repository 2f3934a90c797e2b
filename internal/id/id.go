// Package id generates the identifiers handed out by the server.
package id

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// referencePrefix marks a report reference token.
	referencePrefix = "QS-"
	// referenceAlphabet is uppercase alphanumerics only, so tokens read well aloud.
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 9
)

var referencePattern = regexp.MustCompile(`^QS-[A-Z0-9]{9}$`)

// Reference creates a display-only report reference such as "QS-7K2M9QX4A".
// It is not a durable key; nothing is ever looked up by it.
func Reference() (string, error) {
	token, err := gonanoid.Generate(referenceAlphabet, referenceLength)
	if err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	return referencePrefix + token, nil
}

// IsReference reports whether s has the reference token shape.
func IsReference(s string) bool {
	return referencePattern.MatchString(s)
}

// Session creates an opaque form session identifier.
func Session() string {
	return uuid.NewString()
}

// Generate creates a short prefixed identifier such as "sse-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	token, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "-" + token, nil
}
