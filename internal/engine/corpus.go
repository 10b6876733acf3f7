package engine

import (
	"time"

	"github.com/fyrsmithlabs/insightd/internal/signal"
)

// signalCorpus retains recent meetings' signals for clustering. Bounded two
// ways: by meeting count and by signal age relative to the newest meeting.
type signalCorpus struct {
	maxMeetings int
	maxAge      time.Duration

	// meetings in ingestion order, oldest first.
	meetings []corpusMeeting
}

type corpusMeeting struct {
	id      string
	date    time.Time
	signals []signal.Signal
}

func newSignalCorpus(maxMeetings, maxAgeDays int) *signalCorpus {
	if maxMeetings < 1 {
		maxMeetings = 10
	}
	if maxAgeDays < 1 {
		maxAgeDays = 90
	}
	return &signalCorpus{
		maxMeetings: maxMeetings,
		maxAge:      time.Duration(maxAgeDays) * 24 * time.Hour,
	}
}

// add records a meeting's signals. Re-adding the same meeting replaces its
// previous entry so repeated ingestion does not inflate the corpus.
func (c *signalCorpus) add(meetingID string, date time.Time, signals []signal.Signal) {
	for i := range c.meetings {
		if c.meetings[i].id == meetingID {
			c.meetings[i].date = date
			c.meetings[i].signals = signals
			return
		}
	}
	c.meetings = append(c.meetings, corpusMeeting{id: meetingID, date: date, signals: signals})
	if len(c.meetings) > c.maxMeetings {
		c.meetings = c.meetings[len(c.meetings)-c.maxMeetings:]
	}
}

// prune drops meetings older than the age window, anchored at asOf.
func (c *signalCorpus) prune(asOf time.Time) {
	cutoff := asOf.Add(-c.maxAge)
	kept := c.meetings[:0]
	for _, m := range c.meetings {
		if !m.date.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	c.meetings = kept
}

// snapshot returns a frozen copy of all retained signals of one kind, in
// meeting order. Clustering operates on the copy, never on live state.
func (c *signalCorpus) snapshot(kind signal.Kind) []signal.Signal {
	var out []signal.Signal
	for _, m := range c.meetings {
		for _, s := range m.signals {
			if s.Kind == kind {
				out = append(out, s)
			}
		}
	}
	return out
}
