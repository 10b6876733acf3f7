package ledger

import (
	"math"
	"sort"
	"time"
)

// Trend ratio thresholds: the recent sub-window must differ from the prior
// one by 25% before the trend leaves "stable". Tunable heuristics.
const (
	trendRiseRatio = 1.25
	trendFallRatio = 0.75
)

// classifyTrend compares instance counts in the two most-recent equal-length
// sub-windows ending at asOf.
//
// Increasing density is worsening, or emerging when the pattern is younger
// than one window. Decreasing density is improving, or declining when the
// recent window is empty. Flat is stable.
func classifyTrend(instances []PatternInstance, first time.Time, asOf time.Time, window time.Duration) Trend {
	recentStart := asOf.Add(-window)
	priorStart := asOf.Add(-2 * window)

	var recent, prior int
	for _, inst := range instances {
		switch {
		case !inst.Timestamp.Before(recentStart):
			recent++
		case !inst.Timestamp.Before(priorStart):
			prior++
		}
	}

	age := asOf.Sub(first)

	switch {
	case float64(recent) > float64(prior)*trendRiseRatio && recent > prior:
		if age < window {
			return TrendEmerging
		}
		return TrendWorsening
	case float64(recent) < float64(prior)*trendFallRatio:
		if recent == 0 {
			return TrendDeclining
		}
		return TrendImproving
	default:
		return TrendStable
	}
}

// computeConfidence combines cluster cohesion, instance count relative to
// the occurrence threshold, and recency into a [0,1] score.
//
// Weights are heuristic: cohesion carries the most signal about whether the
// cluster is one real pattern, count and recency guard against stale or
// thin evidence.
func computeConfidence(cohesion float64, frequency, minOccurrences int, instances []PatternInstance, asOf time.Time, recencyWindow time.Duration) float64 {
	countScore := float64(frequency) / float64(2*minOccurrences)
	if countScore > 1 {
		countScore = 1
	}

	var recent int
	cutoff := asOf.Add(-recencyWindow)
	for _, inst := range instances {
		if !inst.Timestamp.Before(cutoff) {
			recent++
		}
	}
	recencyScore := 0.0
	if len(instances) > 0 {
		recencyScore = float64(recent) / float64(len(instances))
	}

	conf := 0.4*cohesion + 0.3*countScore + 0.3*recencyScore
	return math.Max(0, math.Min(1, conf))
}

// synthesizeRootCauses extracts the most frequent co-occurring keywords
// across instances. Not free generation: only keywords actually observed in
// the evidence are reported.
func synthesizeRootCauses(instances []PatternInstance, limit int) []string {
	counts := make(map[string]int)
	for _, inst := range instances {
		seen := make(map[string]bool, len(inst.Keywords))
		for _, kw := range inst.Keywords {
			if !seen[kw] {
				seen[kw] = true
				counts[kw]++
			}
		}
	}
	// A cause has to co-occur: a keyword seen in a single instance is noise.
	type kc struct {
		keyword string
		count   int
	}
	var candidates []kc
	for kw, c := range counts {
		if c >= 2 {
			candidates = append(candidates, kc{kw, c})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].keyword < candidates[j].keyword
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.keyword
	}
	return out
}
