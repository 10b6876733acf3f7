package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func instancesAt(days ...int) []PatternInstance {
	out := make([]PatternInstance, len(days))
	for i, d := range days {
		out[i] = PatternInstance{Timestamp: asOf.AddDate(0, 0, -d)}
	}
	return out
}

func TestClassifyTrend(t *testing.T) {
	window := 30 * 24 * time.Hour

	tests := []struct {
		name     string
		days     []int // days before asOf
		firstAge int   // pattern age in days
		want     Trend
	}{
		{
			name:     "rising density is worsening",
			days:     []int{50, 45, 20, 10, 5, 1},
			firstAge: 50,
			want:     TrendWorsening,
		},
		{
			name:     "rising density on a young pattern is emerging",
			days:     []int{20, 10, 5},
			firstAge: 20,
			want:     TrendEmerging,
		},
		{
			name:     "falling density is improving",
			days:     []int{55, 50, 45, 40, 35, 10},
			firstAge: 55,
			want:     TrendImproving,
		},
		{
			name:     "empty recent window is declining",
			days:     []int{55, 50, 45},
			firstAge: 55,
			want:     TrendDeclining,
		},
		{
			name:     "comparable density is stable",
			days:     []int{50, 40, 20, 10},
			firstAge: 50,
			want:     TrendStable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := asOf.AddDate(0, 0, -tt.firstAge)
			got := classifyTrend(instancesAt(tt.days...), first, asOf, window)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeConfidence(t *testing.T) {
	window := 30 * 24 * time.Hour

	// All-recent, tight cluster at the count ceiling.
	full := computeConfidence(1.0, 6, 3, instancesAt(1, 2, 3, 4, 5, 6), asOf, window)
	assert.InDelta(t, 1.0, full, 1e-9)

	// Nothing recent, loose cluster, thin count.
	weak := computeConfidence(0.1, 3, 3, instancesAt(80, 79, 78), asOf, window)
	assert.InDelta(t, 0.19, weak, 1e-9)

	// Always clamped to [0,1].
	assert.LessOrEqual(t, computeConfidence(2.0, 100, 3, instancesAt(1), asOf, window), 1.0)
	assert.GreaterOrEqual(t, computeConfidence(-1.0, 0, 3, nil, asOf, window), 0.0)
}

func TestSynthesizeRootCauses(t *testing.T) {
	instances := []PatternInstance{
		{Keywords: []string{"blocker", "pipeline"}},
		{Keywords: []string{"blocker", "pipeline", "review"}},
		{Keywords: []string{"blocker", "review"}},
		{Keywords: []string{"flaky"}}, // seen once, excluded
	}

	causes := synthesizeRootCauses(instances, 3)
	assert.Equal(t, []string{"blocker", "pipeline", "review"}, causes)

	assert.Empty(t, synthesizeRootCauses([]PatternInstance{{Keywords: []string{"solo"}}}, 3))
}
