package signal

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/meeting"
)

// Extractor scans a meeting record and emits typed signals.
//
// Extraction is a pure function of the record: no state is kept between
// calls and the only output is the returned slice. Malformed or empty
// segments are skipped, never an error.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger is replaced with a no-op.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("extractor")}
}

// Extract returns all signals found in the record.
//
// Each transcript segment is tested against the three keyword templates;
// a segment may yield zero or multiple signals (at most one per kind).
// Derived risks additionally yield challenge signals so that text-only
// risk registers still contribute evidence.
func (e *Extractor) Extract(rec *meeting.Record) []Signal {
	if rec == nil {
		return nil
	}

	var out []Signal

	for i, seg := range rec.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		ts := seg.Timestamp
		if ts.IsZero() {
			ts = rec.Date
		}
		lower := strings.ToLower(text)

		for _, kind := range Kinds {
			matched := matchKeywords(lower, kindKeywords[kind])
			if len(matched) == 0 {
				continue
			}
			out = append(out, Signal{
				ID:        newID(rec.MeetingID, "segment", i, kind),
				Kind:      kind,
				MeetingID: rec.MeetingID,
				Speaker:   strings.TrimSpace(seg.Speaker),
				Timestamp: ts,
				Text:      text,
				Keywords:  matched,
			})
		}
	}

	for i, risk := range rec.Risks {
		text := strings.TrimSpace(risk.Description)
		if text == "" {
			continue
		}
		matched := matchKeywords(strings.ToLower(text), challengeKeywords)
		if len(matched) == 0 {
			// A risk is challenge evidence even without template keywords.
			matched = topTerms(text, 3)
		}
		out = append(out, Signal{
			ID:        newID(rec.MeetingID, "risk", i, KindChallenge),
			Kind:      KindChallenge,
			MeetingID: rec.MeetingID,
			Speaker:   strings.TrimSpace(risk.Speaker),
			Timestamp: rec.Date,
			Text:      text,
			Keywords:  matched,
		})
	}

	e.logger.Debug("extraction complete",
		zap.String("meeting_id", rec.MeetingID),
		zap.Int("segments", len(rec.Segments)),
		zap.Int("signals", len(out)))

	return out
}

// matchKeywords returns the template keywords present in the lowercased text.
func matchKeywords(lower string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if containsWord(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// containsWord reports whether text contains word bounded by non-alphanumerics,
// so "issue" does not match inside "tissues".
func containsWord(text, word string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		leftOK := idx == 0 || !isAlphaNum(text[idx-1])
		end := idx + len(word)
		rightOK := end >= len(text) || !isAlphaNum(text[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// topTerms returns up to n distinct lowercased words of length >= 4 from text,
// in order of appearance. Used as fallback keywords for derived risks.
func topTerms(text string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?'\"()[]")
		if len(w) < 4 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}
