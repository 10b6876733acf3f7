// Package ledger is the stateful registry of long-lived organizational
// patterns, best practices, fatigue indicators and systemic issues.
//
// The ledger never deletes: entities are created once and then updated as
// new meeting evidence arrives.
package ledger

import (
	"errors"
	"time"
)

// Ledger errors.
var (
	ErrPatternNotFound = errors.New("pattern not found")
)

// Severity is the discrete urgency bucket of a pattern or issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparison and decay.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}

// Trend is the direction of a pattern's occurrence density over recent
// sub-windows.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
	TrendEmerging  Trend = "emerging"
	TrendDeclining Trend = "declining"
)

// PatternType categorizes a detected pattern by the signal kind that feeds it.
type PatternType string

const (
	PatternRecurringChallenge PatternType = "recurring_challenge"
	PatternBehavioral         PatternType = "behavioral_pattern"
	PatternEmotional          PatternType = "emotional_pattern"
)

// Urgency expresses how soon an indicator or issue needs intervention.
type Urgency string

const (
	UrgencyMonitor   Urgency = "monitor"
	UrgencySoon      Urgency = "soon"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyImmediate Urgency = "immediate"
)

// PatternInstance is one occurrence of a pattern in one meeting.
// Owned by exactly one DetectedPattern.
type PatternInstance struct {
	ID string `json:"id"`

	// SignalID links back to the extracted signal; the (MeetingID, SignalID)
	// pair deduplicates re-ingested meetings.
	SignalID string `json:"signal_id"`

	MeetingID string    `json:"meeting_id"`
	Timestamp time.Time `json:"timestamp"`

	// Severity is the numeric instance severity in [0,1], derived from
	// keyword-intensity buckets.
	Severity float64 `json:"severity"`

	Participants []string `json:"participants,omitempty"`
	Evidence     []string `json:"evidence,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// DetectedPattern is a cluster of similar signals recurring across meetings,
// tracked over time.
//
// Invariants: Frequency == len(Instances); FirstOccurrence is the minimum
// instance timestamp and LastOccurrence the maximum.
type DetectedPattern struct {
	ID          string      `json:"id"`
	Type        PatternType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`

	Frequency int      `json:"frequency"`
	Severity  Severity `json:"severity"`
	Trend     Trend    `json:"trend"`

	FirstOccurrence time.Time `json:"first_occurrence"`
	LastOccurrence  time.Time `json:"last_occurrence"`

	Instances []PatternInstance `json:"instances"`

	// AffectedParticipants is a sorted, duplicate-free list.
	AffectedParticipants []string `json:"affected_participants"`

	RootCauses []string `json:"root_causes,omitempty"`

	// Confidence is in [0,1]: cluster cohesion, instance count relative to
	// the occurrence threshold, and recency, combined.
	Confidence float64 `json:"confidence"`

	// cohesion is the latest cluster cohesion backing Confidence.
	cohesion float64
}

// BestPractice is a shared factor across successful meetings.
type BestPractice struct {
	ID       string `json:"id"`
	Category string `json:"category"`

	SuccessIndicators []string `json:"success_indicators"`

	// EffectivenessScore is the mean success score of contributing meetings.
	EffectivenessScore float64 `json:"effectiveness_score"`

	EvidenceMeetings []string `json:"evidence_meetings"`

	FirstObserved time.Time `json:"first_observed"`
	LastObserved  time.Time `json:"last_observed"`
}

// EmotionalFatigueIndicator tracks one participant's fatigue over time.
//
// Same lifecycle shape as DetectedPattern but keyed on per-participant score
// thresholds instead of text clusters.
type EmotionalFatigueIndicator struct {
	ID          string `json:"id"`
	Participant string `json:"participant"`

	// Score is the current fulfillment score in [0,1]; lower is worse.
	Score float64 `json:"score"`

	Severity            Severity `json:"severity"`
	InterventionUrgency Urgency  `json:"intervention_urgency"`
	RecommendedActions  []string `json:"recommended_actions"`

	// Chronic marks a score that stayed below the severe threshold for the
	// whole chronicity window.
	Chronic bool `json:"chronic"`

	FirstObserved time.Time `json:"first_observed"`
	LastObserved  time.Time `json:"last_observed"`

	// BelowSince is when the score last dropped below the severe threshold,
	// zero when currently above it.
	BelowSince time.Time `json:"below_since,omitempty"`
}

// SystemicIssue is an organization-wide issue escalated from a pattern that
// spans enough meetings and participants.
type SystemicIssue struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Severity            Severity `json:"severity"`
	InterventionUrgency Urgency  `json:"intervention_urgency"`
	RecommendedActions  []string `json:"recommended_actions"`

	// SourcePatternID is the detected pattern this issue was escalated from.
	SourcePatternID string `json:"source_pattern_id"`

	AffectedParticipants []string `json:"affected_participants"`

	FirstObserved time.Time `json:"first_observed"`
	LastObserved  time.Time `json:"last_observed"`

	Confidence float64 `json:"confidence"`
}

// PatternFilter narrows ListPatterns results.
type PatternFilter struct {
	Type     PatternType
	Severity Severity
}
