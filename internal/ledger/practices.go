package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/meeting"
)

// RecordMeetingOutcome feeds one meeting's success score into best-practice
// mining.
//
// Meetings scoring at or above the success threshold accumulate per shared
// category; once a category has enough supporting meetings it becomes (or
// refreshes) a BestPractice whose effectiveness is the mean success score of
// its evidence meetings. Returns a copy of the practice when one was created
// or updated, else nil.
func (l *Ledger) RecordMeetingOutcome(rec *meeting.Record, score float64, asOf time.Time) *BestPractice {
	if score < l.cfg.SuccessThreshold {
		return nil
	}

	category := rec.Category
	if category == "" {
		category = "general"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	byMeeting := l.successMeetings[category]
	if byMeeting == nil {
		byMeeting = make(map[string]float64)
		l.successMeetings[category] = byMeeting
	}
	byMeeting[rec.MeetingID] = score

	if len(byMeeting) < l.cfg.MinSupportingMeetings {
		return nil
	}

	meetings := make([]string, 0, len(byMeeting))
	var sum float64
	for id, sc := range byMeeting {
		meetings = append(meetings, id)
		sum += sc
	}
	sort.Strings(meetings)

	bp := l.practices[category]
	if bp == nil {
		bp = &BestPractice{
			ID:            uuid.New().String(),
			Category:      category,
			FirstObserved: asOf,
		}
		l.practices[category] = bp
		l.logger.Info("best practice identified",
			zap.String("category", category),
			zap.Int("supporting_meetings", len(meetings)))
	}
	bp.EvidenceMeetings = meetings
	bp.EffectivenessScore = sum / float64(len(meetings))
	bp.SuccessIndicators = successIndicators(rec)
	bp.LastObserved = asOf

	out := cloneBestPractice(bp)
	return &out
}

// successIndicators names the score components present on the meeting.
func successIndicators(rec *meeting.Record) []string {
	var out []string
	if len(rec.Decisions) > 0 {
		out = append(out, "confident decisions")
	}
	if len(rec.Actions) > 0 {
		out = append(out, "owned action items")
	}
	if rec.Dynamics != nil {
		out = append(out, "balanced participation", "positive sentiment")
	}
	if rec.Needs != nil {
		out = append(out, "balanced needs")
	}
	return out
}

// BestPractices returns copies of all best practices, by category order.
func (l *Ledger) BestPractices() []BestPractice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bestPracticesLocked()
}

func cloneBestPractice(bp *BestPractice) BestPractice {
	out := *bp
	out.SuccessIndicators = append([]string(nil), bp.SuccessIndicators...)
	out.EvidenceMeetings = append([]string(nil), bp.EvidenceMeetings...)
	return out
}
