package algo

import (
	"testing"

	"github.com/huangsam/fluentgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLexicalCeiling(t *testing.T) {
	tests := []struct {
		name          string
		transcript    string
		target        schema.Tier
		expectNil     bool
		expectedCount int
		expectedWords []string
	}{
		{
			name:       "below threshold",
			transcript: "The food was good and the hotel was nice.",
			target:     schema.TierA2,
			expectNil:  true,
		},
		{
			name:          "exactly three with one lemma",
			transcript:    "good, GOOD and Good",
			target:        schema.TierA2,
			expectedCount: 3,
			expectedWords: []string{"good"},
		},
		{
			name:          "exactly three with mixed lemmas",
			transcript:    "It was a big room, a small bed and a sad view.",
			target:        schema.TierA2,
			expectedCount: 3,
			expectedWords: []string{"big", "small", "sad"},
		},
		{
			name:       "word boundaries respected",
			transcript: "goodness badly nicer bigger",
			target:     schema.TierA2,
			expectNil:  true,
		},
		{
			name:          "multi word lemmas",
			transcript:    "It was kind of   fun, sort of long, and very late.",
			target:        schema.TierB2,
			expectedCount: 3,
			expectedWords: []string{"kind of", "sort of", "very"},
		},
		{
			name:       "tier without trigger",
			transcript: "good good good good",
			target:     schema.TierC2,
			expectNil:  true,
		},
		{
			name:       "empty transcript",
			transcript: "",
			target:     schema.TierB1,
			expectNil:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DetectLexicalCeiling(tt.transcript, tt.target)
			if tt.expectNil {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.Equal(t, tt.expectedCount, d.MatchCount)
			assert.Equal(t, tt.expectedWords, d.MatchedWords)
			assert.Equal(t, tt.target, d.TargetTier)
			trig := schema.LexicalTriggers[tt.target]
			assert.Equal(t, trig.Category, d.Category)
			assert.Equal(t, trig.Upgrades, d.Upgrades)
			assert.Equal(t, trig.Rationale, d.Rationale)
		})
	}
}

func TestDetectLexicalCeiling_CeilingTier(t *testing.T) {
	d := DetectLexicalCeiling("and then but so because", schema.TierB1)
	require.NotNil(t, d)
	assert.Equal(t, schema.TierA2, d.CeilingTier)
	assert.Equal(t, 5, d.MatchCount)
}

func TestDetectAll(t *testing.T) {
	transcript := "It was good and bad and nice, but so very tiring."
	detections := DetectAll(transcript, schema.TriggerTiers())
	require.Len(t, detections, 2)
	assert.Equal(t, "basic_adjectives", detections[0].Category)
	assert.Equal(t, "simple_connectors", detections[1].Category)

	assert.Empty(t, DetectAll(transcript, []schema.Tier{schema.TierC1}))
	assert.Empty(t, DetectAll(transcript, nil))
}
