package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreHeadline(t *testing.T) {
	tests := []struct {
		name     string
		headline string
		want     float64
	}{
		{
			name:     "positive earnings headline",
			headline: "Company reports record profit growth",
			want:     0.5,
		},
		{
			name:     "negative regulatory headline",
			headline: "Regulators launch fraud investigation",
			want:     -0.6,
		},
		{
			name:     "neutral headline",
			headline: "Company schedules annual shareholder meeting",
			want:     0,
		},
		{
			name:     "negation flips polarity",
			headline: "Quarter not profitable, CFO says",
			want:     -0.6,
		},
		{
			name:     "empty headline",
			headline: "",
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreHeadline(tt.headline), 1e-9)
		})
	}
}

func TestScoreHeadlineDeterministic(t *testing.T) {
	headline := "Shares plunge after debt downgrade and layoffs warning"
	first := ScoreHeadline(headline)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ScoreHeadline(headline))
	}
	assert.Less(t, first, 0.0)
	assert.GreaterOrEqual(t, first, -1.0)
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, SentimentPositive, LabelFor(0.05))
	assert.Equal(t, SentimentPositive, LabelFor(0.8))
	assert.Equal(t, SentimentNegative, LabelFor(-0.05))
	assert.Equal(t, SentimentNegative, LabelFor(-1))
	assert.Equal(t, SentimentNeutral, LabelFor(0))
	assert.Equal(t, SentimentNeutral, LabelFor(0.049))
	assert.Equal(t, SentimentNeutral, LabelFor(-0.049))
}
