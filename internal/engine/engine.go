// Package engine wires the extraction, clustering, ledger, time-series,
// forecasting, and anomaly components behind a single facade.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/anomaly"
	"github.com/fyrsmithlabs/insightd/internal/config"
	"github.com/fyrsmithlabs/insightd/internal/forecast"
	"github.com/fyrsmithlabs/insightd/internal/ledger"
	"github.com/fyrsmithlabs/insightd/internal/meeting"
	"github.com/fyrsmithlabs/insightd/internal/signal"
	"github.com/fyrsmithlabs/insightd/internal/similarity"
	"github.com/fyrsmithlabs/insightd/internal/timeseries"
)

// maxClusterCount caps k regardless of corpus size.
const maxClusterCount = 10

// AnalysisResult is the outcome of ingesting one meeting record.
type AnalysisResult struct {
	// CurrentPatterns are the detected patterns this meeting contributed
	// evidence to.
	CurrentPatterns []ledger.DetectedPattern `json:"current_patterns"`

	// CrossMeetingPatterns are all active patterns spanning two or more
	// meetings.
	CrossMeetingPatterns []ledger.DetectedPattern `json:"cross_meeting_patterns"`

	BestPractices       []ledger.BestPractice              `json:"best_practices"`
	EmotionalIndicators []ledger.EmotionalFatigueIndicator `json:"emotional_indicators"`
	SystemicIssues      []ledger.SystemicIssue             `json:"systemic_issues"`

	// ConfidenceScore is the mean confidence of the current patterns, 0
	// when the meeting matched none.
	ConfidenceScore float64 `json:"confidence_score"`
}

// Engine is the temporal pattern engine facade. All ingestion is serialized;
// queries read consistent snapshots and may run concurrently with each
// other.
type Engine struct {
	cfg    config.EngineConfig
	logger *zap.Logger
	tracer oteltrace.Tracer

	extractor *signal.Extractor
	textSim   similarity.TextSimilarity
	ledger    *ledger.Ledger
	store     *timeseries.Store

	forecaster *forecast.Forecaster
	detector   *anomaly.Detector

	// ingestMu serializes ingestion end-to-end; the ledger and store have
	// their own locks, but the corpus does not.
	ingestMu sync.Mutex
	corpus   *signalCorpus
}

// New builds an engine with the given thresholds. A nil logger falls back to
// a no-op logger.
func New(cfg config.EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := timeseries.NewStore(cfg.SeriesCapacity)
	return &Engine{
		cfg:        cfg,
		logger:     logger.Named("engine"),
		tracer:     otel.Tracer("insightd/engine"),
		extractor:  signal.NewExtractor(logger),
		textSim:    similarity.NewTFIDF(cfg.MaxVectorDimensions, cfg.MaxClusterIterations),
		ledger:     ledger.NewLedger(cfg, logger),
		store:      store,
		forecaster: forecast.NewForecaster(store, cfg.ForecastMinPoints, logger),
		detector:   anomaly.NewDetector(store, cfg.AnomalyZThreshold, cfg.AnomalyWindowDays, logger),
		corpus:     newSignalCorpus(cfg.MaxCorpusMeetings, cfg.TimeWindowDays),
	}
}

// Store exposes the time-series store for direct metric feeds.
func (e *Engine) Store() *timeseries.Store {
	return e.store
}

// IngestMeeting processes one meeting record end-to-end: extraction,
// clustering over the retained corpus, ledger update, and series feeds.
//
// Processing is synchronous and serialized through the ledger, so two
// concurrent ingestions cannot interleave mutations on the same pattern.
// Re-ingesting the same record is idempotent.
func (e *Engine) IngestMeeting(ctx context.Context, rec *meeting.Record) (AnalysisResult, error) {
	start := time.Now()
	_, span := e.tracer.Start(ctx, "engine.IngestMeeting")
	defer span.End()

	if err := rec.Validate(); err != nil {
		MeetingsIngested.WithLabelValues("malformed").Inc()
		return AnalysisResult{}, fmt.Errorf("validate record: %w", err)
	}
	span.SetAttributes(attribute.String("meeting.id", rec.MeetingID))
	asOf := rec.Date

	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	signals := e.extractor.Extract(rec)
	for _, s := range signals {
		SignalsExtracted.WithLabelValues(string(s.Kind)).Inc()
	}

	e.corpus.add(rec.MeetingID, rec.Date, signals)
	e.corpus.prune(asOf)

	var touched []ledger.DetectedPattern
	for _, kind := range signal.Kinds {
		// Clustering runs over a frozen copy of the retained corpus.
		corpus := e.corpus.snapshot(kind)
		if len(corpus) == 0 {
			continue
		}
		texts := make([]string, len(corpus))
		for i, s := range corpus {
			texts[i] = s.Text
		}
		clusters := e.textSim.Cluster(texts, clusterCount(len(corpus)))
		touched = append(touched, e.ledger.ApplyClusters(kind, corpus, clusters, asOf)...)
	}

	result := AnalysisResult{
		CurrentPatterns:      patternsForMeeting(touched, rec.MeetingID),
		CrossMeetingPatterns: crossMeetingPatterns(e.ledger.ListPatterns(ledger.PatternFilter{}, 0, 0)),
	}
	result.ConfidenceScore = meanConfidence(result.CurrentPatterns)

	if score, ok := rec.SuccessScore(); ok {
		e.ledger.RecordMeetingOutcome(rec, score, asOf)
		e.store.Add("meeting.success_score", asOf, score, map[string]string{"meeting_id": rec.MeetingID})
	}
	result.BestPractices = e.ledger.BestPractices()
	result.EmotionalIndicators = e.ledger.UpdateFatigueIndicators(rec, signals, asOf)
	result.SystemicIssues = e.ledger.UpdateSystemicIssues(asOf)

	e.feedSeries(rec, asOf)
	e.updatePatternGauges()

	MeetingsIngested.WithLabelValues("success").Inc()
	IngestDuration.Observe(time.Since(start).Seconds())

	e.logger.Info("meeting ingested",
		zap.String("meeting_id", rec.MeetingID),
		zap.Int("signals", len(signals)),
		zap.Int("patterns_touched", len(touched)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// ListPatterns returns detected patterns, most recently active first.
func (e *Engine) ListPatterns(filter ledger.PatternFilter, limit, offset int) []ledger.DetectedPattern {
	return e.ledger.ListPatterns(filter, limit, offset)
}

// GetPattern returns one pattern by id.
func (e *Engine) GetPattern(id string) (ledger.DetectedPattern, error) {
	return e.ledger.GetPattern(id)
}

// BestPractices returns the current best-practice registry.
func (e *Engine) BestPractices() []ledger.BestPractice {
	return e.ledger.BestPractices()
}

// FatigueIndicators returns the current per-participant fatigue indicators.
func (e *Engine) FatigueIndicators() []ledger.EmotionalFatigueIndicator {
	return e.ledger.FatigueIndicators()
}

// SystemicIssues returns the current escalated systemic issues.
func (e *Engine) SystemicIssues() []ledger.SystemicIssue {
	return e.ledger.SystemicIssues()
}

// GetForecast fits and extrapolates a model for the variable over the
// horizon. Returns forecast.ErrInsufficientData when the series is too
// short.
func (e *Engine) GetForecast(ctx context.Context, variable string, horizon forecast.Horizon) (forecast.Result, error) {
	_, span := e.tracer.Start(ctx, "engine.GetForecast",
		oteltrace.WithAttributes(attribute.String("variable", variable), attribute.String("horizon", string(horizon))))
	defer span.End()

	res, err := e.forecaster.GetForecast(variable, horizon)
	switch {
	case err == nil:
		ForecastRequests.WithLabelValues("success").Inc()
	case isInsufficientData(err):
		ForecastRequests.WithLabelValues("insufficient_data").Inc()
	default:
		ForecastRequests.WithLabelValues("error").Inc()
	}
	return res, err
}

// DetectAnomalies scans the variable's trailing window. An unknown variable
// or a thin window yields an empty result.
func (e *Engine) DetectAnomalies(ctx context.Context, variable string, windowDays int) []anomaly.Record {
	_, span := e.tracer.Start(ctx, "engine.DetectAnomalies",
		oteltrace.WithAttributes(attribute.String("variable", variable)))
	defer span.End()
	return e.detector.DetectAnomalies(variable, windowDays)
}

// AnalyzeTrend summarizes the variable's trailing window.
func (e *Engine) AnalyzeTrend(ctx context.Context, variable string, windowDays int) (forecast.TrendAnalysis, error) {
	_, span := e.tracer.Start(ctx, "engine.AnalyzeTrend",
		oteltrace.WithAttributes(attribute.String("variable", variable)))
	defer span.End()
	return e.forecaster.AnalyzeTrend(variable, windowDays)
}

// Snapshot captures the engine's persistent state for the storage layer.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Ledger: e.ledger.Snapshot(),
		Series: map[string][]timeseries.Point{},
	}
	for _, v := range e.store.Variables() {
		snap.Series[v] = e.store.Points(v)
	}
	return snap
}

// RestoreSnapshot loads previously captured state. The signal corpus is not
// persisted: clustering rebuilds patterns as new meetings arrive, and the
// owner index inside the ledger snapshot keeps re-ingested history
// idempotent.
func (e *Engine) RestoreSnapshot(snap Snapshot) {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()
	e.ledger.Restore(snap.Ledger)
	for v, points := range snap.Series {
		e.store.Restore(v, points)
	}
	e.updatePatternGauges()
}

// Snapshot is everything the engine persists between runs.
type Snapshot struct {
	Ledger ledger.Snapshot               `json:"ledger"`
	Series map[string][]timeseries.Point `json:"series"`
}

// feedSeries appends pattern frequencies and record metrics to the store so
// forecasting and anomaly detection run on organizational history.
func (e *Engine) feedSeries(rec *meeting.Record, asOf time.Time) {
	for id, freq := range e.ledger.PatternFrequencies() {
		e.store.Add("pattern_frequency."+id, asOf, float64(freq), nil)
	}
	for name, value := range rec.Metrics {
		e.store.Add(name, asOf, value, map[string]string{"meeting_id": rec.MeetingID})
	}
}

func (e *Engine) updatePatternGauges() {
	counts := map[ledger.Severity]int{
		ledger.SeverityLow: 0, ledger.SeverityMedium: 0,
		ledger.SeverityHigh: 0, ledger.SeverityCritical: 0,
	}
	for _, p := range e.ledger.ListPatterns(ledger.PatternFilter{}, 0, 0) {
		counts[p.Severity]++
	}
	for sev, n := range counts {
		PatternsActive.WithLabelValues(string(sev)).Set(float64(n))
	}
}

// clusterCount picks k for a corpus: half the corpus size, capped at 10.
// The clusterer itself falls back to a single cluster when k < 2.
func clusterCount(corpusSize int) int {
	k := corpusSize / 2
	if k > maxClusterCount {
		k = maxClusterCount
	}
	return k
}

func patternsForMeeting(patterns []ledger.DetectedPattern, meetingID string) []ledger.DetectedPattern {
	var out []ledger.DetectedPattern
	seen := map[string]bool{}
	for _, p := range patterns {
		if seen[p.ID] {
			continue
		}
		for _, inst := range p.Instances {
			if inst.MeetingID == meetingID {
				seen[p.ID] = true
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func crossMeetingPatterns(patterns []ledger.DetectedPattern) []ledger.DetectedPattern {
	var out []ledger.DetectedPattern
	for _, p := range patterns {
		meetings := map[string]bool{}
		for _, inst := range p.Instances {
			meetings[inst.MeetingID] = true
		}
		if len(meetings) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

func meanConfidence(patterns []ledger.DetectedPattern) float64 {
	if len(patterns) == 0 {
		return 0
	}
	var sum float64
	for _, p := range patterns {
		sum += p.Confidence
	}
	return sum / float64(len(patterns))
}

func isInsufficientData(err error) bool {
	return errors.Is(err, forecast.ErrInsufficientData)
}
