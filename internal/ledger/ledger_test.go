package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/insightd/internal/config"
	"github.com/fyrsmithlabs/insightd/internal/signal"
	"github.com/fyrsmithlabs/insightd/internal/similarity"
)

var asOf = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(config.DefaultEngine(), nil)
}

func challengeSignal(id, meetingID, speaker string, ts time.Time) signal.Signal {
	return signal.Signal{
		ID:        id,
		Kind:      signal.KindChallenge,
		MeetingID: meetingID,
		Speaker:   speaker,
		Timestamp: ts,
		Text:      "The deployment pipeline is a blocker again",
		Keywords:  []string{"blocker"},
	}
}

// threeMeetingCorpus is three near-identical challenge signals from three
// different meetings.
func threeMeetingCorpus() []signal.Signal {
	return []signal.Signal{
		challengeSignal("sig-1", "m-1", "alice", asOf.AddDate(0, 0, -14)),
		challengeSignal("sig-2", "m-2", "bob", asOf.AddDate(0, 0, -7)),
		challengeSignal("sig-3", "m-3", "alice", asOf),
	}
}

func wholeCorpusCluster(n int, cohesion float64) similarity.Cluster {
	members := make([]int, n)
	for i := range members {
		members[i] = i
	}
	return similarity.Cluster{Members: members, Cohesion: cohesion, TopTerms: []string{"deployment", "pipeline"}}
}

func TestApplyClusters_CreatesPatternAtThreshold(t *testing.T) {
	l := newTestLedger(t)
	corpus := threeMeetingCorpus()

	touched := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf)
	require.Len(t, touched, 1)

	p := touched[0]
	assert.Equal(t, PatternRecurringChallenge, p.Type)
	assert.Equal(t, 3, p.Frequency)
	assert.Len(t, p.Instances, 3)
	assert.Equal(t, corpus[0].Timestamp, p.FirstOccurrence)
	assert.Equal(t, corpus[2].Timestamp, p.LastOccurrence)
	assert.ElementsMatch(t, []string{"alice", "bob"}, p.AffectedParticipants)
	// "blocker" puts every instance in the high bucket.
	assert.Equal(t, SeverityHigh, p.Severity)
	assert.GreaterOrEqual(t, p.Confidence, 0.6)
	assert.LessOrEqual(t, p.Confidence, 1.0)
	assert.Contains(t, p.RootCauses, "blocker")
}

func TestApplyClusters_SkipsSmallClusters(t *testing.T) {
	l := newTestLedger(t)
	corpus := threeMeetingCorpus()[:2]

	touched := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(2, 0.9)}, asOf)
	assert.Empty(t, touched)
	assert.Empty(t, l.ListPatterns(PatternFilter{}, 0, 0))
}

func TestApplyClusters_RejectsLowConfidence(t *testing.T) {
	l := newTestLedger(t)

	// Stale evidence and a loose cluster: confidence stays below the
	// creation threshold.
	old := asOf.AddDate(0, 0, -80)
	corpus := []signal.Signal{
		challengeSignal("sig-1", "m-1", "alice", old),
		challengeSignal("sig-2", "m-2", "bob", old.AddDate(0, 0, 1)),
		challengeSignal("sig-3", "m-3", "carol", old.AddDate(0, 0, 2)),
	}

	touched := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.1)}, asOf)
	assert.Empty(t, touched)
	assert.Empty(t, l.ListPatterns(PatternFilter{}, 0, 0))
}

func TestApplyClusters_IdempotentReingestion(t *testing.T) {
	l := newTestLedger(t)
	corpus := threeMeetingCorpus()
	clusters := []similarity.Cluster{wholeCorpusCluster(3, 0.9)}

	first := l.ApplyClusters(signal.KindChallenge, corpus, clusters, asOf)
	require.Len(t, first, 1)

	second := l.ApplyClusters(signal.KindChallenge, corpus, clusters, asOf)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 3, second[0].Frequency)
	assert.Len(t, l.ListPatterns(PatternFilter{}, 0, 0), 1)
}

func TestApplyClusters_ExtendsOwningPattern(t *testing.T) {
	l := newTestLedger(t)
	corpus := threeMeetingCorpus()

	created := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf)
	require.Len(t, created, 1)

	// Two more meetings produce similar signals; the grown cluster folds
	// into the existing pattern instead of spawning a new one.
	grown := append(corpus,
		challengeSignal("sig-4", "m-4", "carol", asOf.AddDate(0, 0, 3)),
		challengeSignal("sig-5", "m-5", "bob", asOf.AddDate(0, 0, 5)),
	)
	extended := l.ApplyClusters(signal.KindChallenge, grown, []similarity.Cluster{wholeCorpusCluster(5, 0.85)}, asOf.AddDate(0, 0, 5))
	require.Len(t, extended, 1)

	assert.Equal(t, created[0].ID, extended[0].ID)
	assert.Equal(t, 5, extended[0].Frequency)
	assert.Len(t, extended[0].Instances, 5)
	assert.Equal(t, grown[4].Timestamp, extended[0].LastOccurrence)
	assert.Len(t, l.ListPatterns(PatternFilter{}, 0, 0), 1)
}

func TestApplyClusters_NeverReattributesOwnedSignals(t *testing.T) {
	l := newTestLedger(t)
	corpus := threeMeetingCorpus()
	l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf)

	// A later clustering pass groups one owned signal with two fresh ones.
	// The owned signal keeps its pattern; plurality voting extends the
	// owner instead of creating a second pattern over the same evidence.
	mixed := []signal.Signal{
		corpus[0],
		challengeSignal("sig-9", "m-9", "dave", asOf.AddDate(0, 0, 1)),
		challengeSignal("sig-10", "m-10", "dave", asOf.AddDate(0, 0, 2)),
	}
	touched := l.ApplyClusters(signal.KindChallenge, mixed, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf.AddDate(0, 0, 2))
	require.Len(t, touched, 1)

	patterns := l.ListPatterns(PatternFilter{}, 0, 0)
	require.Len(t, patterns, 1)
	assert.Equal(t, 5, patterns[0].Frequency)
}

func TestListPatterns_FilterSortPage(t *testing.T) {
	l := newTestLedger(t)

	for i := 0; i < 3; i++ {
		base := asOf.AddDate(0, 0, -10*i)
		corpus := []signal.Signal{
			challengeSignal(fmt.Sprintf("sig-a%d", i), fmt.Sprintf("m-a%d", i), "alice", base.AddDate(0, 0, -2)),
			challengeSignal(fmt.Sprintf("sig-b%d", i), fmt.Sprintf("m-b%d", i), "bob", base.AddDate(0, 0, -1)),
			challengeSignal(fmt.Sprintf("sig-c%d", i), fmt.Sprintf("m-c%d", i), "carol", base),
		}
		touched := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, base)
		require.Len(t, touched, 1)
	}

	all := l.ListPatterns(PatternFilter{}, 0, 0)
	require.Len(t, all, 3)
	// Most recently active first.
	assert.True(t, all[0].LastOccurrence.After(all[1].LastOccurrence))
	assert.True(t, all[1].LastOccurrence.After(all[2].LastOccurrence))

	paged := l.ListPatterns(PatternFilter{}, 1, 1)
	require.Len(t, paged, 1)
	assert.Equal(t, all[1].ID, paged[0].ID)

	assert.Len(t, l.ListPatterns(PatternFilter{Type: PatternRecurringChallenge}, 0, 0), 3)
	assert.Empty(t, l.ListPatterns(PatternFilter{Type: PatternEmotional}, 0, 0))
	assert.Empty(t, l.ListPatterns(PatternFilter{}, 0, 10))
}

func TestGetPattern(t *testing.T) {
	l := newTestLedger(t)
	touched := l.ApplyClusters(signal.KindChallenge, threeMeetingCorpus(), []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf)
	require.Len(t, touched, 1)

	got, err := l.GetPattern(touched[0].ID)
	require.NoError(t, err)
	assert.Equal(t, touched[0].ID, got.ID)

	_, err = l.GetPattern("nope")
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	l := newTestLedger(t)
	corpus := threeMeetingCorpus()
	touched := l.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf)
	require.Len(t, touched, 1)

	snap := l.Snapshot()

	restored := newTestLedger(t)
	restored.Restore(snap)

	got, err := restored.GetPattern(touched[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Frequency)

	// Ownership survives the round trip: re-applying the same cluster does
	// not duplicate instances.
	again := restored.ApplyClusters(signal.KindChallenge, corpus, []similarity.Cluster{wholeCorpusCluster(3, 0.9)}, asOf)
	require.Len(t, again, 1)
	assert.Equal(t, 3, again[0].Frequency)
}
