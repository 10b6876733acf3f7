// Package anomaly flags statistically unusual points in stored time-series.
package anomaly

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/forecast"
	"github.com/fyrsmithlabs/insightd/internal/timeseries"
)

// minPoints is the window size below which detection returns no results
// rather than guessing from noise.
const minPoints = 5

// Type tags how a point diverges from the rest of the series.
type Type string

const (
	TypeSpike       Type = "spike"
	TypeDip         Type = "dip"
	TypeShift       Type = "shift"
	TypeTrendChange Type = "trend_change"
)

// Severity ranks how far outside the expected range a point fell.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Record is one flagged point with the evidence that flagged it.
type Record struct {
	Variable  string    `json:"variable"`
	Timestamp time.Time `json:"timestamp"`
	Observed  float64   `json:"observed"`
	Expected  float64   `json:"expected"`
	Score     float64   `json:"anomaly_score"`
	Type      Type      `json:"type"`
	Severity  Severity  `json:"severity"`
}

// Detector runs statistical, trend-residual, and seasonal passes over a
// variable's recent history. Detection is read-only: it never mutates the
// series.
type Detector struct {
	store      *timeseries.Store
	zThreshold float64
	windowDays int
	logger     *zap.Logger
}

// NewDetector creates a detector reading from the given store. A zThreshold
// below 1 falls back to the standard 2.0; windowDays below 1 falls back to
// 30.
func NewDetector(store *timeseries.Store, zThreshold float64, windowDays int, logger *zap.Logger) *Detector {
	if zThreshold < 1 {
		zThreshold = 2.0
	}
	if windowDays < 1 {
		windowDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{store: store, zThreshold: zThreshold, windowDays: windowDays, logger: logger.Named("anomaly")}
}

// DetectAnomalies returns every flagged point in the variable's trailing
// window, ordered by timestamp. windowDays <= 0 uses the configured default.
// The window is anchored at the newest point's timestamp so historical
// series scan the same way as live ones. A window with fewer than 5 points
// yields an empty result and no error.
func (d *Detector) DetectAnomalies(variable string, windowDays int) []Record {
	if windowDays <= 0 {
		windowDays = d.windowDays
	}

	points := d.store.Points(variable)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	if len(points) > 0 {
		cutoff := points[len(points)-1].Timestamp.AddDate(0, 0, -windowDays)
		for len(points) > 0 && points[0].Timestamp.Before(cutoff) {
			points = points[1:]
		}
	}
	if len(points) < minPoints {
		return nil
	}

	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Value
	}

	// Each pass votes independently; merge keeps the strongest finding
	// per timestamp.
	found := map[time.Time]Record{}
	d.statisticalPass(variable, points, ys, found)
	d.trendPass(variable, points, ys, found)
	d.seasonalPass(variable, points, ys, found)

	out := make([]Record, 0, len(found))
	for _, a := range found {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	if len(out) > 0 {
		d.logger.Debug("anomalies detected",
			zap.String("variable", variable),
			zap.Int("points", len(points)),
			zap.Int("anomalies", len(out)))
	}
	return out
}

// statisticalPass flags points whose z-score against the rest of the window
// exceeds the threshold. The flagged point is excluded from its own baseline
// so a single extreme value cannot hide itself by inflating the stddev.
func (d *Detector) statisticalPass(variable string, points []timeseries.Point, ys []float64, found map[time.Time]Record) {
	rest := make([]float64, 0, len(ys)-1)
	for i, p := range points {
		rest = rest[:0]
		rest = append(rest, ys[:i]...)
		rest = append(rest, ys[i+1:]...)

		m := mean(rest)
		sd := stddev(rest)
		if sd < 1e-9 {
			if ys[i] == m {
				continue
			}
			sd = 1e-9
		}
		z := (ys[i] - m) / sd
		if math.Abs(z) < d.zThreshold {
			continue
		}

		typ := TypeSpike
		if z < 0 {
			typ = TypeDip
		}
		record(found, Record{
			Variable:  variable,
			Timestamp: p.Timestamp,
			Observed:  ys[i],
			Expected:  m,
			Score:     math.Abs(z),
			Type:      typ,
			Severity:  severityFor(math.Abs(z)),
		})
	}
}

// trendPass fits a linear model over the window and flags points whose
// residual is an outlier among residuals. Early-window residual outliers
// read as level shifts, later ones as trend changes.
func (d *Detector) trendPass(variable string, points []timeseries.Point, ys []float64, found map[time.Time]Record) {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	m := fitLine(xs, ys)

	residuals := make([]float64, len(ys))
	for i := range ys {
		residuals[i] = ys[i] - (m.intercept + m.slope*xs[i])
	}
	rm := mean(residuals)
	rsd := stddev(residuals)
	if rsd < 1e-9 {
		return
	}

	for i, p := range points {
		z := (residuals[i] - rm) / rsd
		if math.Abs(z) < d.zThreshold {
			continue
		}
		typ := TypeShift
		if i >= len(points)/2 {
			typ = TypeTrendChange
		}
		record(found, Record{
			Variable:  variable,
			Timestamp: p.Timestamp,
			Observed:  ys[i],
			Expected:  m.intercept + m.slope*xs[i],
			Score:     math.Abs(z),
			Type:      typ,
			Severity:  severityFor(math.Abs(z)),
		})
	}
}

// seasonalPass removes the detected seasonal component and flags points far
// from their phase mean. Skipped when no seasonality is detected.
func (d *Detector) seasonalPass(variable string, points []timeseries.Point, ys []float64, found map[time.Time]Record) {
	season := forecast.DetectSeasonality(ys)
	if !season.Detected || season.Period < 2 {
		return
	}
	phase := forecast.SeasonalPhaseMeans(ys, season.Period)

	deviations := make([]float64, len(ys))
	for i := range ys {
		deviations[i] = ys[i] - phase[i%season.Period]
	}
	dm := mean(deviations)
	dsd := stddev(deviations)
	if dsd < 1e-9 {
		return
	}

	for i, p := range points {
		z := (deviations[i] - dm) / dsd
		if math.Abs(z) < d.zThreshold {
			continue
		}
		record(found, Record{
			Variable:  variable,
			Timestamp: p.Timestamp,
			Observed:  ys[i],
			Expected:  phase[i%season.Period],
			Score:     math.Abs(z),
			Type:      TypeShift,
			Severity:  severityFor(math.Abs(z)),
		})
	}
}

// record keeps the finding with the larger score when two passes flag the
// same timestamp.
func record(found map[time.Time]Record, a Record) {
	if prev, ok := found[a.Timestamp]; ok && prev.Score >= a.Score {
		return
	}
	found[a.Timestamp] = a
}

// severityFor buckets the absolute z-score.
func severityFor(z float64) Severity {
	switch {
	case z < 2.5:
		return SeverityLow
	case z < 3.5:
		return SeverityMedium
	case z < 4.5:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

type line struct {
	intercept float64
	slope     float64
}

func fitLine(xs, ys []float64) line {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if math.Abs(denom) < 1e-12 {
		return line{intercept: sumY / n}
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return line{intercept: (sumY - slope*sumX) / n, slope: slope}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
