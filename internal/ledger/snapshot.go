package ledger

import "sort"

// Snapshot is the serializable state of the ledger, used at the persistence
// boundary. Cluster cohesion is not carried over; it is recomputed on the
// next clustering pass and confidence only drifts until then.
type Snapshot struct {
	Patterns        []DetectedPattern             `json:"patterns"`
	Owners          map[string]string             `json:"owners"`
	Practices       []BestPractice                `json:"practices"`
	SuccessMeetings map[string]map[string]float64 `json:"success_meetings"`
	Indicators      []EmotionalFatigueIndicator   `json:"indicators"`
	Issues          []SystemicIssue               `json:"issues"`
}

// Snapshot exports a deep copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Owners:          make(map[string]string, len(l.owners)),
		SuccessMeetings: make(map[string]map[string]float64, len(l.successMeetings)),
	}

	ids := make([]string, 0, len(l.patterns))
	for id := range l.patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		snap.Patterns = append(snap.Patterns, clonePattern(l.patterns[id]))
	}

	for k, v := range l.owners {
		snap.Owners[k] = v
	}
	for cat, byMeeting := range l.successMeetings {
		m := make(map[string]float64, len(byMeeting))
		for id, sc := range byMeeting {
			m[id] = sc
		}
		snap.SuccessMeetings[cat] = m
	}

	snap.Practices = l.bestPracticesLocked()
	snap.Indicators = l.fatigueIndicatorsLocked()
	snap.Issues = l.systemicIssuesLocked()
	return snap
}

// Restore replaces the ledger state with a snapshot.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.patterns = make(map[string]*DetectedPattern, len(snap.Patterns))
	for i := range snap.Patterns {
		p := clonePattern(&snap.Patterns[i])
		l.patterns[p.ID] = &p
	}

	l.owners = make(map[string]string, len(snap.Owners))
	for k, v := range snap.Owners {
		l.owners[k] = v
	}

	l.successMeetings = make(map[string]map[string]float64, len(snap.SuccessMeetings))
	for cat, byMeeting := range snap.SuccessMeetings {
		m := make(map[string]float64, len(byMeeting))
		for id, sc := range byMeeting {
			m[id] = sc
		}
		l.successMeetings[cat] = m
	}

	l.practices = make(map[string]*BestPractice, len(snap.Practices))
	for i := range snap.Practices {
		bp := cloneBestPractice(&snap.Practices[i])
		l.practices[bp.Category] = &bp
	}

	l.indicators = make(map[string]*EmotionalFatigueIndicator, len(snap.Indicators))
	for i := range snap.Indicators {
		ind := cloneIndicator(&snap.Indicators[i])
		l.indicators[ind.Participant] = &ind
	}

	l.issues = make(map[string]*SystemicIssue, len(snap.Issues))
	for i := range snap.Issues {
		issue := cloneIssue(&snap.Issues[i])
		l.issues[issue.SourcePatternID] = &issue
	}
}

// bestPracticesLocked is BestPractices without re-locking.
func (l *Ledger) bestPracticesLocked() []BestPractice {
	categories := make([]string, 0, len(l.practices))
	for c := range l.practices {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	out := make([]BestPractice, 0, len(categories))
	for _, c := range categories {
		out = append(out, cloneBestPractice(l.practices[c]))
	}
	return out
}

// fatigueIndicatorsLocked is FatigueIndicators without re-locking.
func (l *Ledger) fatigueIndicatorsLocked() []EmotionalFatigueIndicator {
	participants := make([]string, 0, len(l.indicators))
	for p := range l.indicators {
		participants = append(participants, p)
	}
	sort.Strings(participants)
	out := make([]EmotionalFatigueIndicator, 0, len(participants))
	for _, p := range participants {
		out = append(out, cloneIndicator(l.indicators[p]))
	}
	return out
}

// systemicIssuesLocked is SystemicIssues without re-locking.
func (l *Ledger) systemicIssuesLocked() []SystemicIssue {
	keys := make([]string, 0, len(l.issues))
	for k := range l.issues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]SystemicIssue, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneIssue(l.issues[k]))
	}
	return out
}
