package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/config"
	"github.com/fyrsmithlabs/insightd/internal/signal"
	"github.com/fyrsmithlabs/insightd/internal/similarity"
)

// Ledger is the registry of pattern/practice/indicator/issue entities.
//
// All mutations are serialized behind one mutex: ingestion is synchronous
// end-to-end and contention is low, so single-writer discipline is cheaper
// than per-pattern locks. Each pattern update is applied to a copy and
// swapped in whole, so a failed update never leaves a half-mutated pattern.
type Ledger struct {
	mu     sync.RWMutex
	cfg    config.EngineConfig
	logger *zap.Logger

	patterns map[string]*DetectedPattern
	owners   map[string]string // signal ID -> owning pattern ID

	practices       map[string]*BestPractice          // by category
	successMeetings map[string]map[string]float64     // category -> meeting ID -> score
	indicators      map[string]*EmotionalFatigueIndicator // by participant
	issues          map[string]*SystemicIssue         // by source pattern ID
}

// NewLedger creates an empty ledger.
func NewLedger(cfg config.EngineConfig, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		cfg:             cfg,
		logger:          logger.Named("ledger"),
		patterns:        make(map[string]*DetectedPattern),
		owners:          make(map[string]string),
		practices:       make(map[string]*BestPractice),
		successMeetings: make(map[string]map[string]float64),
		indicators:      make(map[string]*EmotionalFatigueIndicator),
		issues:          make(map[string]*SystemicIssue),
	}
}

// patternTypeFor maps a signal kind to the pattern taxonomy.
func patternTypeFor(kind signal.Kind) PatternType {
	switch kind {
	case signal.KindBehavioral:
		return PatternBehavioral
	case signal.KindEmotional:
		return PatternEmotional
	default:
		return PatternRecurringChallenge
	}
}

// ApplyClusters folds a clustering of the signal corpus into the registry.
//
// Each qualifying cluster either extends the existing pattern that already
// owns most of its signals, or creates a new pattern when the cluster's
// confidence clears the creation threshold. Signals already owned by a
// pattern are never re-attributed, so re-ingesting a meeting is idempotent.
// Returns copies of the patterns touched by this call.
func (l *Ledger) ApplyClusters(kind signal.Kind, corpus []signal.Signal, clusters []similarity.Cluster, asOf time.Time) []DetectedPattern {
	l.mu.Lock()
	defer l.mu.Unlock()

	var touched []DetectedPattern
	for _, cluster := range clusters {
		if len(cluster.Members) < l.cfg.MinOccurrences {
			continue
		}

		members := make([]signal.Signal, 0, len(cluster.Members))
		for _, idx := range cluster.Members {
			if idx >= 0 && idx < len(corpus) {
				members = append(members, corpus[idx])
			}
		}

		updated, err := l.applyCluster(kind, members, cluster, asOf)
		if err != nil {
			// Per-pattern isolation: log and move on, other patterns are
			// untouched.
			l.logger.Warn("cluster application failed",
				zap.String("kind", string(kind)),
				zap.Int("cluster_size", len(members)),
				zap.Error(err))
			continue
		}
		if updated != nil {
			touched = append(touched, *updated)
		}
	}
	return touched
}

// applyCluster updates or creates the pattern for one cluster. The returned
// pattern is a detached copy.
func (l *Ledger) applyCluster(kind signal.Kind, members []signal.Signal, cluster similarity.Cluster, asOf time.Time) (*DetectedPattern, error) {
	// Find the pattern already owning a plurality of the cluster's signals.
	votes := make(map[string]int)
	for _, sig := range members {
		if owner, ok := l.owners[sig.ID]; ok {
			votes[owner]++
		}
	}
	var ownerID string
	var best int
	for id, n := range votes {
		if n > best || (n == best && id < ownerID) || ownerID == "" {
			ownerID, best = id, n
		}
	}

	var work DetectedPattern
	if ownerID != "" {
		existing, ok := l.patterns[ownerID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPatternNotFound, ownerID)
		}
		work = clonePattern(existing)
	} else {
		work = DetectedPattern{
			ID:       uuid.New().String(),
			Type:     patternTypeFor(kind),
			Title:    patternTitle(kind, cluster.TopTerms),
			Severity: SeverityMedium,
			Trend:    TrendEmerging,
		}
	}

	appended := l.appendInstances(&work, members)
	if work.Frequency == 0 {
		return nil, nil
	}

	work.cohesion = cluster.Cohesion
	work.Description = patternDescription(kind, cluster.TopTerms, work.Frequency)
	work.Severity = aggregateSeverity(work.Severity, work.Instances, asOf, l.cfg.TrendWindow.Duration())
	work.Trend = classifyTrend(work.Instances, work.FirstOccurrence, asOf, l.cfg.TrendWindow.Duration())
	work.Confidence = computeConfidence(work.cohesion, work.Frequency, l.cfg.MinOccurrences, work.Instances, asOf, l.cfg.RecencyWindow.Duration())
	work.RootCauses = synthesizeRootCauses(work.Instances, 3)

	if ownerID == "" {
		// Creation gate: a brand-new cluster has to clear both thresholds.
		if work.Frequency < l.cfg.MinOccurrences || work.Confidence < l.cfg.MinConfidence {
			return nil, nil
		}
		l.logger.Info("pattern detected",
			zap.String("pattern_id", work.ID),
			zap.String("type", string(work.Type)),
			zap.String("title", work.Title),
			zap.Int("frequency", work.Frequency),
			zap.Float64("confidence", work.Confidence))
	} else if appended == 0 {
		// Nothing new: recomputed fields may still have moved (severity
		// decay, trend), so the swap below is still wanted.
		l.logger.Debug("pattern refreshed", zap.String("pattern_id", work.ID))
	}

	// Swap in the fully built copy and claim the signals.
	l.patterns[work.ID] = &work
	for _, inst := range work.Instances {
		l.owners[inst.SignalID] = work.ID
	}

	out := clonePattern(&work)
	return &out, nil
}

// appendInstances adds instances for signals not yet owned by any pattern,
// deduplicating by (meeting ID, signal ID). Returns the number appended.
func (l *Ledger) appendInstances(p *DetectedPattern, members []signal.Signal) int {
	have := make(map[string]bool, len(p.Instances))
	for _, inst := range p.Instances {
		have[inst.MeetingID+"\x00"+inst.SignalID] = true
	}

	appended := 0
	for _, sig := range members {
		if owner, ok := l.owners[sig.ID]; ok && owner != p.ID {
			continue
		}
		key := sig.MeetingID + "\x00" + sig.ID
		if have[key] {
			continue
		}
		have[key] = true

		inst := PatternInstance{
			ID:        uuid.New().String(),
			SignalID:  sig.ID,
			MeetingID: sig.MeetingID,
			Timestamp: sig.Timestamp,
			Severity:  instanceSeverity(sig.Text),
			Evidence:  []string{sig.Text},
			Keywords:  sig.Keywords,
		}
		if sig.Speaker != "" {
			inst.Participants = []string{sig.Speaker}
		}
		p.Instances = append(p.Instances, inst)
		appended++
	}

	p.Frequency = len(p.Instances)
	p.FirstOccurrence, p.LastOccurrence = occurrenceBounds(p.Instances)
	p.AffectedParticipants = collectParticipants(p.Instances)
	return appended
}

// occurrenceBounds returns the min and max instance timestamps.
func occurrenceBounds(instances []PatternInstance) (first, last time.Time) {
	for _, inst := range instances {
		if first.IsZero() || inst.Timestamp.Before(first) {
			first = inst.Timestamp
		}
		if inst.Timestamp.After(last) {
			last = inst.Timestamp
		}
	}
	return first, last
}

// collectParticipants returns the sorted distinct participants.
func collectParticipants(instances []PatternInstance) []string {
	seen := make(map[string]bool)
	var out []string
	for _, inst := range instances {
		for _, p := range inst.Participants {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

func patternTitle(kind signal.Kind, topTerms []string) string {
	label := map[signal.Kind]string{
		signal.KindChallenge:  "Recurring challenge",
		signal.KindBehavioral: "Behavioral pattern",
		signal.KindEmotional:  "Emotional pattern",
	}[kind]
	if len(topTerms) == 0 {
		return label
	}
	n := len(topTerms)
	if n > 2 {
		n = 2
	}
	return label + ": " + strings.Join(topTerms[:n], ", ")
}

func patternDescription(kind signal.Kind, topTerms []string, frequency int) string {
	terms := "similar mentions"
	if len(topTerms) > 0 {
		terms = `"` + strings.Join(topTerms, `", "`) + `"`
	}
	return fmt.Sprintf("%s signals around %s observed %d times across meetings", kind, terms, frequency)
}

// clonePattern deep-copies a pattern so callers never alias ledger state.
func clonePattern(p *DetectedPattern) DetectedPattern {
	out := *p
	out.Instances = make([]PatternInstance, len(p.Instances))
	for i, inst := range p.Instances {
		ci := inst
		ci.Participants = append([]string(nil), inst.Participants...)
		ci.Evidence = append([]string(nil), inst.Evidence...)
		ci.Keywords = append([]string(nil), inst.Keywords...)
		out.Instances[i] = ci
	}
	out.AffectedParticipants = append([]string(nil), p.AffectedParticipants...)
	out.RootCauses = append([]string(nil), p.RootCauses...)
	return out
}

// ListPatterns returns pattern copies matching the filter, most recently
// active first, paginated by limit/offset. A zero limit returns all.
func (l *Ledger) ListPatterns(filter PatternFilter, limit, offset int) []DetectedPattern {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []DetectedPattern
	for _, p := range l.patterns {
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.Severity != "" && p.Severity != filter.Severity {
			continue
		}
		out = append(out, clonePattern(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastOccurrence.Equal(out[j].LastOccurrence) {
			return out[i].LastOccurrence.After(out[j].LastOccurrence)
		}
		return out[i].ID < out[j].ID
	})

	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetPattern returns a copy of one pattern.
func (l *Ledger) GetPattern(id string) (DetectedPattern, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.patterns[id]
	if !ok {
		return DetectedPattern{}, fmt.Errorf("%w: %s", ErrPatternNotFound, id)
	}
	return clonePattern(p), nil
}

// PatternFrequencies returns pattern ID -> current frequency, feeding the
// time-series store after each ingestion.
func (l *Ledger) PatternFrequencies() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.patterns))
	for id, p := range l.patterns {
		out[id] = p.Frequency
	}
	return out
}
