package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/meeting"
	"github.com/fyrsmithlabs/insightd/internal/signal"
)

// emotionalSignalPenalty is how much each emotional signal from a
// participant in one meeting pulls their fatigue score down when no explicit
// needs score is present.
const emotionalSignalPenalty = 0.2

// UpdateFatigueIndicators refreshes per-participant fatigue indicators from
// one meeting.
//
// The participant score comes from the record's human-needs scores when
// present, otherwise it is derived from the density of emotional signals
// attributed to the participant. Scores below twice the severe threshold
// create or update an indicator; a score that stays below the severe
// threshold for the whole chronicity window escalates to critical and marks
// the indicator chronic regardless of the standard severity rule.
// Returns copies of the indicators touched.
func (l *Ledger) UpdateFatigueIndicators(rec *meeting.Record, signals []signal.Signal, asOf time.Time) []EmotionalFatigueIndicator {
	scores := participantScores(rec, signals)
	if len(scores) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	participants := make([]string, 0, len(scores))
	for p := range scores {
		participants = append(participants, p)
	}
	sort.Strings(participants)

	var touched []EmotionalFatigueIndicator
	for _, participant := range participants {
		score := scores[participant]
		ind := l.indicators[participant]

		if ind == nil {
			// Healthy participants don't get an indicator at all.
			if score >= 2*l.cfg.SevereIndicatorThreshold+0.2 {
				continue
			}
			ind = &EmotionalFatigueIndicator{
				ID:            uuid.New().String(),
				Participant:   participant,
				FirstObserved: asOf,
			}
			l.indicators[participant] = ind
		}

		ind.Score = score
		ind.LastObserved = asOf
		ind.Severity = indicatorSeverity(score, l.cfg.SevereIndicatorThreshold)

		// Chronicity escalation.
		if score < l.cfg.SevereIndicatorThreshold {
			if ind.BelowSince.IsZero() {
				ind.BelowSince = asOf
			}
			if asOf.Sub(ind.BelowSince) >= l.cfg.ChronicWindow.Duration() {
				ind.Severity = SeverityCritical
				if !ind.Chronic {
					ind.Chronic = true
					l.logger.Warn("chronic fatigue indicator",
						zap.String("participant", participant),
						zap.Float64("score", score))
				}
			}
		} else {
			ind.BelowSince = time.Time{}
		}

		ind.InterventionUrgency = urgencyFor(ind.Severity)
		ind.RecommendedActions = fatigueActions(ind.Severity)

		touched = append(touched, cloneIndicator(ind))
	}
	return touched
}

// participantScores derives the [0,1] fatigue score per participant for one
// meeting.
func participantScores(rec *meeting.Record, signals []signal.Signal) map[string]float64 {
	out := make(map[string]float64)
	if rec.Needs != nil {
		for p, s := range rec.Needs.ParticipantScores {
			out[p] = math.Max(0, math.Min(1, s))
		}
	}

	emotional := make(map[string]int)
	for _, sig := range signals {
		if sig.Kind == signal.KindEmotional && sig.Speaker != "" {
			emotional[sig.Speaker]++
		}
	}
	for p, n := range emotional {
		derived := math.Max(0, 1-emotionalSignalPenalty*float64(n))
		if explicit, ok := out[p]; ok {
			// Explicit needs data wins, but emotional evidence can only
			// make things look worse, not better.
			out[p] = math.Min(explicit, derived)
		} else {
			out[p] = derived
		}
	}
	return out
}

// fatigueActions returns the canned intervention list for a severity.
func fatigueActions(s Severity) []string {
	switch s {
	case SeverityCritical:
		return []string{
			"schedule an immediate one-on-one",
			"redistribute workload this week",
			"review on-call and meeting load",
		}
	case SeverityHigh:
		return []string{
			"schedule a one-on-one within the week",
			"review current workload",
		}
	case SeverityMedium:
		return []string{"check in at the next one-on-one"}
	default:
		return []string{"continue monitoring"}
	}
}

// FatigueIndicators returns copies of all indicators, by participant order.
func (l *Ledger) FatigueIndicators() []EmotionalFatigueIndicator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fatigueIndicatorsLocked()
}

func cloneIndicator(ind *EmotionalFatigueIndicator) EmotionalFatigueIndicator {
	out := *ind
	out.RecommendedActions = append([]string(nil), ind.RecommendedActions...)
	return out
}

// UpdateSystemicIssues escalates patterns that span enough meetings and
// participants into organization-wide issues. Returns copies of the issues
// touched by this pass.
func (l *Ledger) UpdateSystemicIssues(asOf time.Time) []SystemicIssue {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.patterns))
	for id := range l.patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var touched []SystemicIssue
	for _, id := range ids {
		p := l.patterns[id]
		if !l.isSystemic(p) {
			continue
		}

		issue := l.issues[p.ID]
		if issue == nil {
			issue = &SystemicIssue{
				ID:              uuid.New().String(),
				SourcePatternID: p.ID,
				FirstObserved:   asOf,
			}
			l.issues[p.ID] = issue
			l.logger.Warn("systemic issue escalated",
				zap.String("pattern_id", p.ID),
				zap.String("title", p.Title))
		}
		issue.Title = "Systemic: " + p.Title
		issue.Description = fmt.Sprintf("%s; affects %d participants across %d occurrences",
			p.Description, len(p.AffectedParticipants), p.Frequency)
		issue.Severity = p.Severity
		issue.InterventionUrgency = urgencyFor(p.Severity)
		issue.RecommendedActions = systemicActions(p)
		issue.AffectedParticipants = append([]string(nil), p.AffectedParticipants...)
		issue.Confidence = p.Confidence
		issue.LastObserved = asOf

		touched = append(touched, cloneIssue(issue))
	}
	return touched
}

// isSystemic reports whether a pattern is broad enough to escalate:
// it has to recur well past the detection threshold and span multiple
// meetings and participants.
func (l *Ledger) isSystemic(p *DetectedPattern) bool {
	if p.Frequency < 2*l.cfg.MinOccurrences {
		return false
	}
	if len(p.AffectedParticipants) < 3 {
		return false
	}
	meetings := make(map[string]bool)
	for _, inst := range p.Instances {
		meetings[inst.MeetingID] = true
	}
	return len(meetings) >= 3
}

// systemicActions synthesizes interventions from the pattern's root causes.
func systemicActions(p *DetectedPattern) []string {
	out := []string{"raise in the next leadership review"}
	for _, cause := range p.RootCauses {
		out = append(out, "investigate recurring driver: "+cause)
	}
	if p.Severity == SeverityCritical {
		out = append(out, "assign a directly responsible owner")
	}
	return out
}

// SystemicIssues returns copies of all systemic issues, by source pattern
// order.
func (l *Ledger) SystemicIssues() []SystemicIssue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.systemicIssuesLocked()
}

func cloneIssue(issue *SystemicIssue) SystemicIssue {
	out := *issue
	out.RecommendedActions = append([]string(nil), issue.RecommendedActions...)
	out.AffectedParticipants = append([]string(nil), issue.AffectedParticipants...)
	return out
}
