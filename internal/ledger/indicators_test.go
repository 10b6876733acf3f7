package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/insightd/internal/meeting"
	"github.com/fyrsmithlabs/insightd/internal/signal"
	"github.com/fyrsmithlabs/insightd/internal/similarity"
)

func recordWithNeeds(scores map[string]float64) *meeting.Record {
	return &meeting.Record{
		MeetingID: "m-needs",
		Date:      asOf,
		Needs:     &meeting.Needs{BalanceScore: 0.5, ParticipantScores: scores},
	}
}

func TestUpdateFatigueIndicators_FromNeedsScores(t *testing.T) {
	l := newTestLedger(t)

	touched := l.UpdateFatigueIndicators(recordWithNeeds(map[string]float64{
		"alice": 0.15, // below severe threshold (0.2)
		"bob":   0.30, // below 2x threshold
		"carol": 0.95, // healthy, no indicator
	}), nil, asOf)

	require.Len(t, touched, 2)
	byP := map[string]EmotionalFatigueIndicator{}
	for _, ind := range touched {
		byP[ind.Participant] = ind
	}

	alice := byP["alice"]
	assert.Equal(t, SeverityHigh, alice.Severity)
	assert.Equal(t, UrgencyUrgent, alice.InterventionUrgency)
	assert.False(t, alice.Chronic)
	assert.NotEmpty(t, alice.RecommendedActions)

	bob := byP["bob"]
	assert.Equal(t, SeverityMedium, bob.Severity)

	assert.Len(t, l.FatigueIndicators(), 2)
}

func TestUpdateFatigueIndicators_DerivedFromEmotionalSignals(t *testing.T) {
	l := newTestLedger(t)

	rec := &meeting.Record{MeetingID: "m-1", Date: asOf}
	signals := []signal.Signal{
		{ID: "e1", Kind: signal.KindEmotional, MeetingID: "m-1", Speaker: "alice", Timestamp: asOf, Text: "exhausted"},
		{ID: "e2", Kind: signal.KindEmotional, MeetingID: "m-1", Speaker: "alice", Timestamp: asOf, Text: "overwhelmed"},
		{ID: "e3", Kind: signal.KindEmotional, MeetingID: "m-1", Speaker: "alice", Timestamp: asOf, Text: "drained"},
	}

	touched := l.UpdateFatigueIndicators(rec, signals, asOf)
	require.Len(t, touched, 1)
	// Three emotional signals pull the derived score to 0.4.
	assert.InDelta(t, 0.4, touched[0].Score, 1e-9)
	assert.Equal(t, "alice", touched[0].Participant)
	assert.NotEmpty(t, touched[0].RecommendedActions)
}

func TestUpdateFatigueIndicators_ChronicEscalation(t *testing.T) {
	l := newTestLedger(t)
	scores := map[string]float64{"alice": 0.1}

	first := l.UpdateFatigueIndicators(recordWithNeeds(scores), nil, asOf)
	require.Len(t, first, 1)
	assert.Equal(t, SeverityHigh, first[0].Severity)
	assert.False(t, first[0].Chronic)

	// Still below the severe threshold a full chronicity window later.
	later := asOf.AddDate(0, 0, 31)
	second := l.UpdateFatigueIndicators(recordWithNeeds(scores), nil, later)
	require.Len(t, second, 1)
	assert.True(t, second[0].Chronic)
	assert.Equal(t, SeverityCritical, second[0].Severity)
	assert.Equal(t, UrgencyImmediate, second[0].InterventionUrgency)
}

func TestUpdateFatigueIndicators_RecoveryResetsChronicityClock(t *testing.T) {
	l := newTestLedger(t)

	l.UpdateFatigueIndicators(recordWithNeeds(map[string]float64{"alice": 0.1}), nil, asOf)
	// Recovers above the severe threshold.
	l.UpdateFatigueIndicators(recordWithNeeds(map[string]float64{"alice": 0.35}), nil, asOf.AddDate(0, 0, 10))
	// Drops again; the below-threshold clock restarts here.
	touched := l.UpdateFatigueIndicators(recordWithNeeds(map[string]float64{"alice": 0.1}), nil, asOf.AddDate(0, 0, 20))

	require.Len(t, touched, 1)
	assert.False(t, touched[0].Chronic)
	assert.Equal(t, SeverityHigh, touched[0].Severity)
}

func systemicLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	l := newTestLedger(t)

	corpus := []signal.Signal{
		challengeSignal("sig-1", "m-1", "alice", asOf.AddDate(0, 0, -10)),
		challengeSignal("sig-2", "m-1", "bob", asOf.AddDate(0, 0, -10)),
		challengeSignal("sig-3", "m-2", "carol", asOf.AddDate(0, 0, -5)),
		challengeSignal("sig-4", "m-2", "alice", asOf.AddDate(0, 0, -5)),
		challengeSignal("sig-5", "m-3", "bob", asOf.AddDate(0, 0, -1)),
		challengeSignal("sig-6", "m-3", "carol", asOf.AddDate(0, 0, -1)),
	}
	touched := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(6, 0.9)}, asOf)
	require.Len(t, touched, 1)
	return l, touched[0].ID
}

func TestUpdateSystemicIssues_EscalatesBroadPattern(t *testing.T) {
	l, patternID := systemicLedger(t)

	issues := l.UpdateSystemicIssues(asOf)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, patternID, issue.SourcePatternID)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, issue.AffectedParticipants)
	assert.Equal(t, SeverityHigh, issue.Severity)
	assert.Equal(t, UrgencyUrgent, issue.InterventionUrgency)
	assert.NotEmpty(t, issue.RecommendedActions)

	// A second pass updates the same issue rather than creating another.
	again := l.UpdateSystemicIssues(asOf.AddDate(0, 0, 1))
	require.Len(t, again, 1)
	assert.Equal(t, issue.ID, again[0].ID)
	assert.Len(t, l.SystemicIssues(), 1)
}

func TestUpdateSystemicIssues_NarrowPatternNotEscalated(t *testing.T) {
	l := newTestLedger(t)

	// Recurs enough but only two participants and two meetings.
	corpus := []signal.Signal{
		challengeSignal("sig-1", "m-1", "alice", asOf.AddDate(0, 0, -10)),
		challengeSignal("sig-2", "m-1", "alice", asOf.AddDate(0, 0, -10)),
		challengeSignal("sig-3", "m-1", "bob", asOf.AddDate(0, 0, -10)),
		challengeSignal("sig-4", "m-2", "alice", asOf.AddDate(0, 0, -5)),
		challengeSignal("sig-5", "m-2", "bob", asOf.AddDate(0, 0, -5)),
		challengeSignal("sig-6", "m-2", "bob", asOf.AddDate(0, 0, -5)),
	}
	require.Len(t, l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(6, 0.9)}, asOf), 1)

	assert.Empty(t, l.UpdateSystemicIssues(asOf))
	assert.Empty(t, l.SystemicIssues())
}
