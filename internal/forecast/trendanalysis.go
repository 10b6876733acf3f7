package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/fyrsmithlabs/insightd/internal/timeseries"
)

// TrendAnalysis summarizes the shape of a variable's recent history.
type TrendAnalysis struct {
	Variable string `json:"variable"`

	// TrendStrength is the normalized slope in [-1,1]; negative means
	// decreasing.
	TrendStrength float64 `json:"trend_strength"`

	Direction TrendDirection `json:"direction"`

	// Significance is the linear fit's R² over the window.
	Significance float64 `json:"significance"`

	// ChangeRate is the raw slope over normalized elapsed time.
	ChangeRate float64 `json:"change_rate"`

	// TurningPoints are the timestamps where the series reversed
	// direction.
	TurningPoints []time.Time `json:"turning_points"`

	// Stability maps the coefficient of variation onto [0,1]; 1 is
	// perfectly steady.
	Stability float64 `json:"stability"`
}

// directionStrength is the minimum |TrendStrength| before a trend counts as
// directional rather than stable.
const directionStrength = 0.1

// AnalyzeTrend fits a linear model over the variable's trailing window and
// reports slope, fit quality, and direction reversals. windowDays <= 0 scans
// the full history. The window is anchored at the newest point's timestamp.
func (f *Forecaster) AnalyzeTrend(variable string, windowDays int) (TrendAnalysis, error) {
	points := f.sortedPoints(variable)
	if windowDays > 0 && len(points) > 0 {
		cutoff := points[len(points)-1].Timestamp.AddDate(0, 0, -windowDays)
		for len(points) > 0 && points[0].Timestamp.Before(cutoff) {
			points = points[1:]
		}
	}
	if len(points) < 3 {
		return TrendAnalysis{}, fmt.Errorf("%w: %s has %d points in window, need 3", ErrInsufficientData, variable, len(points))
	}

	xs, ys, _ := normalize(points)
	m := fitLinear(xs, ys)
	r2 := rSquared(m, xs, ys)

	sd := stddev(ys, mean(ys))
	strength := 0.0
	if sd > 1e-9 {
		// Slope over normalized [0,1] time relative to series spread.
		strength = m.coef[1] / sd
		strength = math.Max(-1, math.Min(1, strength))
	}

	direction := TrendFlat
	switch {
	case strength > directionStrength:
		direction = TrendIncreasing
	case strength < -directionStrength:
		direction = TrendDecreasing
	}

	return TrendAnalysis{
		Variable:      variable,
		TrendStrength: strength,
		Direction:     direction,
		Significance:  r2,
		ChangeRate:    m.coef[1],
		TurningPoints: turningPoints(points),
		Stability:     stability(ys),
	}, nil
}

// turningPoints returns the timestamps of local direction reversals.
func turningPoints(points []timeseries.Point) []time.Time {
	var out []time.Time
	prev := 0.0
	for i := 1; i < len(points); i++ {
		d := points[i].Value - points[i-1].Value
		if d == 0 {
			continue
		}
		if prev != 0 && (d > 0) != (prev > 0) {
			out = append(out, points[i-1].Timestamp)
		}
		prev = d
	}
	return out
}

func stability(ys []float64) float64 {
	m := mean(ys)
	sd := stddev(ys, m)
	if math.Abs(m) < 1e-9 {
		if sd < 1e-9 {
			return 1
		}
		return 0
	}
	cv := sd / math.Abs(m)
	s := 1 - cv
	if s < 0 {
		s = 0
	}
	return s
}
