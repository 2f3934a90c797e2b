package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_Format(t *testing.T) {
	for range 500 {
		ref, err := Reference()
		require.NoError(t, err)
		assert.Regexp(t, `^QS-[A-Z0-9]{9}$`, ref)
		assert.True(t, IsReference(ref))
	}
}

func TestReference_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		ref, err := Reference()
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestIsReference(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"QS-ABCDEFGH1", true},
		{"QS-abcdefgh1", false},
		{"QS-ABCDEFGH", false},
		{"QS-ABCDEFGH12", false},
		{"XX-ABCDEFGH1", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsReference(tt.in), tt.in)
	}
}

func TestSession_IsUUID(t *testing.T) {
	a, b := Session(), Session()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestGenerate_Prefix(t *testing.T) {
	got, err := Generate("sse")
	require.NoError(t, err)
	assert.Regexp(t, `^sse-[A-Za-z0-9_-]{21}$`, got)
}
