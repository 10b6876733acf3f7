// Package forecast fits per-variable regression models and produces point
// predictions with confidence intervals.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/insightd/internal/timeseries"
)

// Forecast errors. ErrInsufficientData is an expected, typed result: too few
// points for the requested operation, not a failure of the engine.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownHorizon   = errors.New("unknown forecast horizon")
)

// Horizon is the requested future time span.
type Horizon string

const (
	HorizonShortTerm  Horizon = "short_term"  // up to 4 weeks
	HorizonMediumTerm Horizon = "medium_term" // 1-3 months
	HorizonLongTerm   Horizon = "long_term"   // 3-12 months
	HorizonStrategic  Horizon = "strategic"   // 1 year and beyond
)

// steps returns the extrapolation step count and width for a horizon.
func (h Horizon) steps() (int, time.Duration, error) {
	const day = 24 * time.Hour
	switch h {
	case HorizonShortTerm:
		return 28, day, nil
	case HorizonMediumTerm:
		return 12, 7 * day, nil
	case HorizonLongTerm:
		return 12, 30 * day, nil
	case HorizonStrategic:
		return 8, 91 * day, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownHorizon, h)
	}
}

// ConfidenceLevel buckets forecast reliability.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
)

// TrendDirection is the coarse direction of the forecast.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendFlat       TrendDirection = "stable"
)

// Interval is a (lo, hi) confidence interval around one predicted value.
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Result is one forecast. Regenerated fresh on every request: it is a pure
// function of the current series state and the horizon.
type Result struct {
	Variable            string          `json:"variable"`
	Horizon             Horizon         `json:"horizon"`
	PredictedValues     []float64       `json:"predicted_values"`
	Timestamps          []time.Time     `json:"timestamps"`
	ConfidenceIntervals []Interval      `json:"confidence_intervals"`
	ConfidenceLevel     ConfidenceLevel `json:"confidence_level"`
	ModelAccuracy       float64         `json:"model_accuracy"`
	TrendDirection      TrendDirection  `json:"trend_direction"`
	Seasonality         Seasonality     `json:"seasonality"`
}

const (
	// minHoldout is the smallest holdout that gives a meaningful
	// out-of-sample error; below this, full-data residuals are used.
	minHoldout = 5

	// ciZ is the z-value for the 95% confidence interval.
	ciZ = 1.96

	// stableFraction is the relative change below which the forecast trend
	// is reported stable.
	stableFraction = 0.05

	// fullDataPoints is the series length at which data volume stops
	// discounting confidence.
	fullDataPoints = 50
)

// Forecaster fits a bounded regression model per variable on request.
type Forecaster struct {
	store     *timeseries.Store
	minPoints int
	logger    *zap.Logger
}

// NewForecaster creates a forecaster reading from the given store.
func NewForecaster(store *timeseries.Store, minPoints int, logger *zap.Logger) *Forecaster {
	if minPoints < 3 {
		minPoints = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forecaster{store: store, minPoints: minPoints, logger: logger.Named("forecast")}
}

// GetForecast fits a model over the variable's history and extrapolates it
// for the horizon's step count.
//
// Returns ErrInsufficientData when the series has fewer than the configured
// minimum points. The confidence interval always contains the point
// prediction, and the model is refit on every call.
func (f *Forecaster) GetForecast(variable string, horizon Horizon) (Result, error) {
	stepCount, stepWidth, err := horizon.steps()
	if err != nil {
		return Result{}, err
	}

	points := f.sortedPoints(variable)
	if len(points) < f.minPoints {
		return Result{}, fmt.Errorf("%w: %s has %d points, need %d", ErrInsufficientData, variable, len(points), f.minPoints)
	}

	xs, ys, toX := normalize(points)

	// 80/20 holdout for out-of-sample accuracy; with a thin holdout fall
	// back to full-data residuals.
	holdout := len(points) / 5
	trainXs, trainYs := xs, ys
	evalXs, evalYs := xs, ys
	if holdout >= minHoldout {
		split := len(points) - holdout
		trainXs, trainYs = xs[:split], ys[:split]
		evalXs, evalYs = xs[split:], ys[split:]
	}

	m := fitModel(trainXs, trainYs)
	rse := residualStdErr(m, evalXs, evalYs)
	accuracy := rSquared(m, evalXs, evalYs)

	last := points[len(points)-1].Timestamp
	res := Result{
		Variable:            variable,
		Horizon:             horizon,
		PredictedValues:     make([]float64, stepCount),
		Timestamps:          make([]time.Time, stepCount),
		ConfidenceIntervals: make([]Interval, stepCount),
		ModelAccuracy:       accuracy,
		Seasonality:         DetectSeasonality(ys),
	}
	for i := 0; i < stepCount; i++ {
		ts := last.Add(time.Duration(i+1) * stepWidth)
		pred := m.predict(toX(ts))
		res.Timestamps[i] = ts
		res.PredictedValues[i] = pred
		res.ConfidenceIntervals[i] = Interval{Lo: pred - ciZ*rse, Hi: pred + ciZ*rse}
	}

	res.TrendDirection = trendDirection(res.PredictedValues)
	res.ConfidenceLevel = confidenceLevel(accuracy, len(points), f.store.QualityFraction(variable))

	f.logger.Debug("forecast generated",
		zap.String("variable", variable),
		zap.String("horizon", string(horizon)),
		zap.Int("points", len(points)),
		zap.Int("model_degree", m.degree),
		zap.Float64("accuracy", accuracy))

	return res, nil
}

// sortedPoints returns the variable's history sorted by timestamp.
func (f *Forecaster) sortedPoints(variable string) []timeseries.Point {
	points := f.store.Points(variable)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

// normalize maps timestamps onto [0,1] elapsed time and returns the mapping
// for extrapolation. A zero-span series falls back to index positions.
func normalize(points []timeseries.Point) (xs, ys []float64, toX func(time.Time) float64) {
	n := len(points)
	xs = make([]float64, n)
	ys = make([]float64, n)
	t0 := points[0].Timestamp
	span := points[n-1].Timestamp.Sub(t0)

	if span <= 0 {
		for i, p := range points {
			xs[i] = float64(i) / float64(n-1)
			ys[i] = p.Value
		}
		return xs, ys, func(time.Time) float64 { return 1 }
	}

	for i, p := range points {
		xs[i] = float64(p.Timestamp.Sub(t0)) / float64(span)
		ys[i] = p.Value
	}
	return xs, ys, func(ts time.Time) float64 {
		return float64(ts.Sub(t0)) / float64(span)
	}
}

// trendDirection compares the first and last predicted values with a 5%
// stability threshold.
func trendDirection(predicted []float64) TrendDirection {
	if len(predicted) < 2 {
		return TrendFlat
	}
	first, last := predicted[0], predicted[len(predicted)-1]
	base := math.Abs(first)
	if base < 1e-9 {
		base = 1e-9
	}
	change := (last - first) / base
	switch {
	case change > stableFraction:
		return TrendIncreasing
	case change < -stableFraction:
		return TrendDecreasing
	default:
		return TrendFlat
	}
}

// confidenceLevel buckets accuracy discounted by data volume and series
// quality (out-of-order arrivals reduce quality).
func confidenceLevel(accuracy float64, points int, quality float64) ConfidenceLevel {
	volume := float64(points) / fullDataPoints
	if volume > 1 {
		volume = 1
	}
	score := accuracy * volume * quality
	switch {
	case score >= 0.9:
		return ConfidenceVeryHigh
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.65:
		return ConfidenceMedium
	case score >= 0.5:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}
