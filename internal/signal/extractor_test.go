package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/insightd/internal/meeting"
)

func testRecord() *meeting.Record {
	date := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &meeting.Record{
		MeetingID: "m-1",
		Date:      date,
		Segments: []meeting.Segment{
			{Speaker: "alice", Text: "The deployment pipeline is a blocker again, we are behind schedule."},
			{Speaker: "bob", Text: "Carol always interrupts during design reviews."},
			{Speaker: "carol", Text: "Honestly I'm exhausted, this sprint has been overwhelming."},
			{Speaker: "dave", Text: "Nothing to report this week."},
		},
		Risks: []meeting.Risk{
			{Description: "Vendor contract renewal may slip", Speaker: "alice"},
		},
	}
}

func TestExtract_KindsAndProvenance(t *testing.T) {
	e := NewExtractor(nil)
	signals := e.Extract(testRecord())

	byKind := map[Kind][]Signal{}
	for _, s := range signals {
		byKind[s.Kind] = append(byKind[s.Kind], s)
	}

	// Segment 1 matches challenge, segment 2 behavioral, segment 3
	// emotional, segment 4 nothing; the risk adds a second challenge.
	require.Len(t, byKind[KindChallenge], 2)
	require.Len(t, byKind[KindBehavioral], 1)
	require.Len(t, byKind[KindEmotional], 1)

	ch := byKind[KindChallenge][0]
	assert.Equal(t, "m-1", ch.MeetingID)
	assert.Equal(t, "alice", ch.Speaker)
	assert.Contains(t, ch.Keywords, "blocker")
	assert.NotEmpty(t, ch.ID)

	assert.Equal(t, "bob", byKind[KindBehavioral][0].Speaker)
	assert.Contains(t, byKind[KindBehavioral][0].Keywords, "always")
}

func TestExtract_SegmentMayYieldMultipleKinds(t *testing.T) {
	e := NewExtractor(nil)
	rec := &meeting.Record{
		MeetingID: "m-2",
		Date:      time.Now(),
		Segments: []meeting.Segment{
			{Speaker: "alice", Text: "I'm exhausted by this recurring blocker, it comes up every time."},
		},
	}

	signals := e.Extract(rec)
	require.Len(t, signals, 3)

	kinds := map[Kind]bool{}
	for _, s := range signals {
		kinds[s.Kind] = true
	}
	assert.True(t, kinds[KindChallenge])
	assert.True(t, kinds[KindBehavioral])
	assert.True(t, kinds[KindEmotional])
}

func TestExtract_DeterministicIDs(t *testing.T) {
	e := NewExtractor(nil)

	first := e.Extract(testRecord())
	second := e.Extract(testRecord())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestExtract_EmptyAndMalformedInput(t *testing.T) {
	e := NewExtractor(nil)

	assert.Empty(t, e.Extract(nil))
	assert.Empty(t, e.Extract(&meeting.Record{MeetingID: "m-3", Date: time.Now()}))

	// Blank segments are skipped, not errors.
	rec := &meeting.Record{
		MeetingID: "m-4",
		Date:      time.Now(),
		Segments:  []meeting.Segment{{Speaker: "alice", Text: "   "}},
	}
	assert.Empty(t, e.Extract(rec))
}

func TestExtract_RiskFallbackKeywords(t *testing.T) {
	e := NewExtractor(nil)
	rec := &meeting.Record{
		MeetingID: "m-5",
		Date:      time.Now(),
		Risks:     []meeting.Risk{{Description: "Vendor contract renewal window closing"}},
	}

	signals := e.Extract(rec)
	require.Len(t, signals, 1)
	assert.Equal(t, KindChallenge, signals[0].Kind)
	assert.Equal(t, []string{"vendor", "contract", "renewal"}, signals[0].Keywords)
}

func TestContainsWord_Boundaries(t *testing.T) {
	tests := []struct {
		text string
		word string
		want bool
	}{
		{"we have an issue here", "issue", true},
		{"the tissues are in the box", "issue", false},
		{"issue", "issue", true},
		{"re-issue the ticket", "issue", true},
		{"no match at all", "issue", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsWord(tt.text, tt.word), tt.text)
	}
}
