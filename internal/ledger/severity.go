package ledger

import (
	"strings"
	"time"
)

// Keyword-intensity buckets, checked in priority order. The first bucket
// containing a match decides the instance severity; no match means medium.
var severityKeywords = []struct {
	score    float64
	keywords []string
}{
	{0.95, []string{
		"critical", "crisis", "emergency", "burnout", "burned out", "burnt out",
		"resign", "quitting", "attrition", "escalate", "escalation", "outage",
	}},
	{0.75, []string{
		"urgent", "severe", "major", "blocker", "blocked", "blocking",
		"exhausted", "overwhelmed", "missed the deadline", "missing the deadline",
	}},
	{0.5, []string{
		"problem", "issue", "concern", "delay", "delayed", "stressed",
		"frustrated", "struggle", "struggling",
	}},
	{0.25, []string{
		"minor", "small", "slight", "nitpick",
	}},
}

// instanceSeverity derives the numeric [0,1] severity of one instance from
// its source text.
func instanceSeverity(text string) float64 {
	lower := strings.ToLower(text)
	for _, bucket := range severityKeywords {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.score
			}
		}
	}
	return 0.5
}

// severityBucket maps a numeric instance severity to the discrete bucket.
func severityBucket(score float64) Severity {
	switch {
	case score >= 0.9:
		return SeverityCritical
	case score >= 0.7:
		return SeverityHigh
	case score >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// aggregateSeverity computes the pattern severity: the most severe instance
// in the trailing window. With no instances in the window, the previous
// severity decays one bucket toward medium.
func aggregateSeverity(prev Severity, instances []PatternInstance, asOf time.Time, window time.Duration) Severity {
	cutoff := asOf.Add(-window)
	var maxScore float64
	var found bool
	for _, inst := range instances {
		if inst.Timestamp.Before(cutoff) {
			continue
		}
		found = true
		if inst.Severity > maxScore {
			maxScore = inst.Severity
		}
	}
	if found {
		return severityBucket(maxScore)
	}
	return decayTowardMedium(prev)
}

// decayTowardMedium moves a severity one bucket toward medium.
func decayTowardMedium(s Severity) Severity {
	switch {
	case s.rank() > SeverityMedium.rank():
		return bucketAtRank(s.rank() - 1)
	case s.rank() < SeverityMedium.rank():
		return bucketAtRank(s.rank() + 1)
	default:
		return SeverityMedium
	}
}

func bucketAtRank(rank int) Severity {
	switch rank {
	case 0:
		return SeverityLow
	case 2:
		return SeverityHigh
	case 3:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// indicatorSeverity buckets a fatigue score; lower score is worse.
func indicatorSeverity(score, severeThreshold float64) Severity {
	switch {
	case score < severeThreshold:
		return SeverityHigh
	case score < 2*severeThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// urgencyFor maps a severity to an intervention urgency.
func urgencyFor(s Severity) Urgency {
	switch s {
	case SeverityCritical:
		return UrgencyImmediate
	case SeverityHigh:
		return UrgencyUrgent
	case SeverityMedium:
		return UrgencySoon
	default:
		return UrgencyMonitor
	}
}
