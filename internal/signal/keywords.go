package signal

// Keyword templates per signal kind. The three sets are disjoint; a segment
// can still yield up to one signal per kind.

// challengeKeywords flag recurring challenges and delivery friction.
var challengeKeywords = []string{
	"problem", "issue", "challenge", "blocker", "blocked", "blocking",
	"struggle", "struggling", "difficult", "difficulty", "delay", "delayed",
	"behind schedule", "missing the deadline", "missed the deadline",
	"miss the deadline", "slipping", "stuck", "bottleneck", "failure",
	"failing", "broken", "risk", "concern", "obstacle", "setback",
	"unclear requirements", "scope creep", "tech debt", "technical debt",
}

// behavioralKeywords flag habitual patterns in how people work together.
var behavioralKeywords = []string{
	"always", "never", "keeps", "keep doing", "every time", "each time",
	"again and again", "once again", "as usual", "repeatedly", "tend to",
	"tends to", "habit", "interrupt", "interrupts", "interrupting",
	"dominates", "dominating", "talks over", "ignores", "avoids",
	"late to", "skips", "multitasking",
}

// emotionalKeywords flag emotional strain and fatigue.
var emotionalKeywords = []string{
	"tired", "exhausted", "exhausting", "burned out", "burnout", "burnt out",
	"overwhelmed", "overloaded", "stressed", "stressful", "frustrated",
	"frustrating", "anxious", "anxiety", "demotivated", "drained",
	"fatigue", "fatigued", "morale", "dread", "can't keep up",
	"too much on my plate", "no energy",
}

// kindKeywords maps each signal kind to its template.
var kindKeywords = map[Kind][]string{
	KindChallenge:  challengeKeywords,
	KindBehavioral: behavioralKeywords,
	KindEmotional:  emotionalKeywords,
}
