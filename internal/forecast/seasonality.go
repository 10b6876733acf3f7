package forecast

// Seasonality reports a repeating cycle in a series. Detection is reported
// alongside forecasts but never gates them.
type Seasonality struct {
	Detected bool `json:"detected"`

	// Period is the cycle length in samples, 0 when not detected.
	Period int `json:"period,omitempty"`

	// Strength is the autocorrelation at the detected period.
	Strength float64 `json:"strength,omitempty"`
}

// seasonalityThreshold is the minimum autocorrelation for a candidate cycle
// to count as seasonality.
const seasonalityThreshold = 0.5

// DetectSeasonality tests candidate periods of at least 4 samples against
// the series autocorrelation. The series needs at least three full cycles
// of a candidate period before that period is considered.
func DetectSeasonality(values []float64) Seasonality {
	n := len(values)
	if n < 12 {
		return Seasonality{}
	}

	m := mean(values)
	var variance float64
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	if variance == 0 {
		return Seasonality{}
	}

	best := Seasonality{}
	for period := 4; period <= n/3; period++ {
		var acf float64
		for i := period; i < n; i++ {
			acf += (values[i] - m) * (values[i-period] - m)
		}
		acf /= variance
		if acf >= seasonalityThreshold && acf > best.Strength {
			best = Seasonality{Detected: true, Period: period, Strength: acf}
		}
	}
	return best
}

// SeasonalPhaseMeans averages the series per phase of the detected period.
// Used by the anomaly detector's seasonal pass.
func SeasonalPhaseMeans(values []float64, period int) []float64 {
	sums := make([]float64, period)
	counts := make([]int, period)
	for i, v := range values {
		phase := i % period
		sums[phase] += v
		counts[phase]++
	}
	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= float64(counts[i])
		}
	}
	return sums
}
