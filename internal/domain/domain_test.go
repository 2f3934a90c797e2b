package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagSet_ToggleTwiceRestores(t *testing.T) {
	for _, tag := range SafetyTags {
		s := TagSet{"crowded": {}}
		before := s.Clone()

		s.Toggle(tag.ID)
		s.Toggle(tag.ID)

		assert.Equal(t, before, s, tag.ID)
	}
}

func TestTagSet_CatalogOrder(t *testing.T) {
	s := TagSet{}
	s.Toggle("safe-vibe")
	s.Toggle("well-lit")
	s.Toggle("deserted")

	assert.Equal(t, []string{"Well Lit", "Empty/Deserted", "Safe Vibe"}, s.Labels())
	assert.Equal(t, []string{"well-lit", "deserted", "safe-vibe"}, s.IDs())
}

func TestTagSet_Empty(t *testing.T) {
	s := TagSet{}
	assert.Empty(t, s.Labels())
	assert.NotNil(t, s.Labels())
}

func TestTagByID(t *testing.T) {
	tag, ok := TagByID("maintenance-needed")
	assert.True(t, ok)
	assert.Equal(t, "Needs Repair", tag.Label)

	_, ok = TagByID("glowing")
	assert.False(t, ok)
}

func TestValidScore(t *testing.T) {
	for n := MinScore; n <= MaxScore; n++ {
		assert.True(t, ValidScore(n))
	}
	assert.False(t, ValidScore(0))
	assert.False(t, ValidScore(6))
	assert.Len(t, RatingLevels, MaxScore)
}
