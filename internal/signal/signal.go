// Package signal extracts typed pattern-evidence signals from meeting records.
package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a signal is evidence of.
type Kind string

const (
	// KindChallenge marks a recurring-challenge mention.
	KindChallenge Kind = "challenge"

	// KindBehavioral marks a behavioral-style indicator.
	KindBehavioral Kind = "behavioral"

	// KindEmotional marks an emotional or fatigue indicator.
	KindEmotional Kind = "emotional"
)

// Kinds lists all signal kinds in extraction order.
var Kinds = []Kind{KindChallenge, KindBehavioral, KindEmotional}

// Signal is a provenance-tagged extraction from one meeting segment.
// Immutable once created.
type Signal struct {
	// ID is deterministic per (meeting, segment, kind) so re-ingesting the
	// same meeting yields identical IDs and deduplicates downstream.
	ID string `json:"id"`

	// Kind is the signal type.
	Kind Kind `json:"kind"`

	// MeetingID is the meeting the signal came from.
	MeetingID string `json:"meeting_id"`

	// Speaker is the segment speaker, empty for derived lists.
	Speaker string `json:"speaker,omitempty"`

	// Timestamp is the segment (or meeting) timestamp.
	Timestamp time.Time `json:"timestamp"`

	// Text is the source text the signal was extracted from.
	Text string `json:"text"`

	// Keywords are the matched keywords, used for root-cause synthesis.
	Keywords []string `json:"keywords,omitempty"`
}

// newID derives a deterministic UUID for a signal from its provenance.
func newID(meetingID, source string, index int, kind Kind) string {
	name := fmt.Sprintf("%s#%s#%d#%s", meetingID, source, index, kind)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
