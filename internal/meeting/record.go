// Package meeting defines the normalized meeting record the engine ingests.
package meeting

import (
	"errors"
	"strings"
	"time"
)

// Record validation errors.
var (
	ErrMalformedRecord = errors.New("malformed meeting record")
	ErrEmptyMeetingID  = errors.New("meeting ID cannot be empty")
)

// Record is one normalized meeting: transcript segments plus the derived
// decision/action/risk lists produced upstream.
type Record struct {
	// MeetingID uniquely identifies the meeting.
	MeetingID string `json:"meeting_id"`

	// Date is when the meeting took place.
	Date time.Time `json:"date"`

	// Category is the meeting template or category label (e.g. "standup",
	// "retro"). Used for best-practice factor mining.
	Category string `json:"category,omitempty"`

	// Segments are the transcript segments in order.
	Segments []Segment `json:"transcript_segments"`

	// Decisions are the decisions derived from the transcript.
	Decisions []Decision `json:"decisions,omitempty"`

	// Actions are the action items derived from the transcript.
	Actions []Action `json:"actions,omitempty"`

	// Risks are the risks derived from the transcript.
	Risks []Risk `json:"risks,omitempty"`

	// Dynamics captures discussion balance and sentiment, when available.
	Dynamics *Dynamics `json:"discussion_dynamics,omitempty"`

	// Needs captures human-needs scoring, when available.
	Needs *Needs `json:"human_needs,omitempty"`

	// Metrics are arbitrary named numeric metrics for this meeting. Each one
	// is appended to the time-series store on ingestion.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Segment is one transcript segment.
type Segment struct {
	Speaker   string    `json:"speaker"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Decision is a derived decision with the upstream extractor's confidence.
type Decision struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Action is a derived action item.
type Action struct {
	Description string  `json:"description"`
	Owner       string  `json:"owner,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Risk is a derived risk mention.
type Risk struct {
	Description string `json:"description"`
	Speaker     string `json:"speaker,omitempty"`
}

// Dynamics describes participation balance and sentiment for the meeting.
type Dynamics struct {
	// ParticipationBalance is 1.0 when speaking time is evenly distributed.
	ParticipationBalance float64 `json:"participation_balance"`

	// PositiveSentimentFraction is the fraction of segments with positive
	// sentiment.
	PositiveSentimentFraction float64 `json:"positive_sentiment_fraction"`
}

// Needs describes human-needs fulfillment for the meeting.
type Needs struct {
	// BalanceScore is 1.0 when needs are fully balanced across participants.
	BalanceScore float64 `json:"balance_score"`

	// ParticipantScores maps participant name to a [0,1] fulfillment score.
	// Low scores feed the emotional-fatigue indicators.
	ParticipantScores map[string]float64 `json:"participant_scores,omitempty"`
}

// Validate checks the minimum shape required for ingestion.
//
// Individual malformed segments are not an error here: the extractor skips
// them. Only a record that cannot be attributed at all is rejected.
func (r *Record) Validate() error {
	if r == nil {
		return ErrMalformedRecord
	}
	if strings.TrimSpace(r.MeetingID) == "" {
		return ErrEmptyMeetingID
	}
	if r.Date.IsZero() {
		return ErrMalformedRecord
	}
	return nil
}

// Participants returns the distinct speakers across segments.
func (r *Record) Participants() []string {
	seen := make(map[string]bool)
	var out []string
	for _, seg := range r.Segments {
		name := strings.TrimSpace(seg.Speaker)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// SuccessScore computes the meeting success score: the unweighted mean of
// the component scores that are present. Returns (0, false) when no
// component is available.
//
// Components: average decision confidence, average action confidence,
// participation balance, positive-sentiment fraction, need-balance score.
func (r *Record) SuccessScore() (float64, bool) {
	var sum float64
	var n int

	if len(r.Decisions) > 0 {
		var s float64
		for _, d := range r.Decisions {
			s += d.Confidence
		}
		sum += s / float64(len(r.Decisions))
		n++
	}
	if len(r.Actions) > 0 {
		var s float64
		for _, a := range r.Actions {
			s += a.Confidence
		}
		sum += s / float64(len(r.Actions))
		n++
	}
	if r.Dynamics != nil {
		sum += r.Dynamics.ParticipationBalance
		n++
		sum += r.Dynamics.PositiveSentimentFraction
		n++
	}
	if r.Needs != nil {
		sum += r.Needs.BalanceScore
		n++
	}

	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
