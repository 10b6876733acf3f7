package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/insightd/internal/timeseries"
)

var t0 = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func storeWith(values []float64) *timeseries.Store {
	s := timeseries.NewStore(100)
	for i, v := range values {
		s.Add("v", t0.AddDate(0, 0, i), v, nil)
	}
	return s
}

func newDetector(s *timeseries.Store) *Detector {
	return NewDetector(s, 2.0, 30, nil)
}

func TestDetectAnomalies_SpikeFlaggedHigh(t *testing.T) {
	s := storeWith([]float64{10, 11, 9, 10, 50, 10, 11})
	records := newDetector(s).DetectAnomalies("v", 0)

	require.NotEmpty(t, records)

	var spike *Record
	for i := range records {
		if records[i].Observed == 50 {
			spike = &records[i]
		}
	}
	require.NotNil(t, spike, "the 50 must be flagged")
	assert.Equal(t, TypeSpike, spike.Type)
	assert.GreaterOrEqual(t, spike.Score, 2.0)
	assert.Contains(t, []Severity{SeverityHigh, SeverityCritical}, spike.Severity)
	assert.Equal(t, t0.AddDate(0, 0, 4), spike.Timestamp)
	assert.InDelta(t, 10.17, spike.Expected, 0.1)
}

func TestDetectAnomalies_DipFlagged(t *testing.T) {
	s := storeWith([]float64{50, 51, 49, 50, 5, 50, 51})
	records := newDetector(s).DetectAnomalies("v", 0)

	require.NotEmpty(t, records)
	var dip *Record
	for i := range records {
		if records[i].Observed == 5 {
			dip = &records[i]
		}
	}
	require.NotNil(t, dip)
	assert.Equal(t, TypeDip, dip.Type)
}

func TestDetectAnomalies_TooFewPoints(t *testing.T) {
	s := storeWith([]float64{10, 11, 50, 9})
	assert.Empty(t, newDetector(s).DetectAnomalies("v", 0))
	assert.Empty(t, newDetector(s).DetectAnomalies("unknown", 0))
}

func TestDetectAnomalies_CleanSeries(t *testing.T) {
	s := storeWith([]float64{10, 10.1, 9.9, 10.05, 9.95, 10.0, 10.1, 9.9, 10.0, 10.05})
	assert.Empty(t, newDetector(s).DetectAnomalies("v", 0))
}

func TestDetectAnomalies_ConstantSeries(t *testing.T) {
	s := storeWith([]float64{7, 7, 7, 7, 7, 7, 7})
	assert.Empty(t, newDetector(s).DetectAnomalies("v", 0))
}

func TestDetectAnomalies_WindowExcludesOldPoints(t *testing.T) {
	s := timeseries.NewStore(200)
	// An extreme value 90 days back, then a clean recent month.
	s.Add("v", t0.AddDate(0, 0, -90), 500, nil)
	for i := 0; i < 20; i++ {
		s.Add("v", t0.AddDate(0, 0, i), 10+float64(i%3), nil)
	}

	records := newDetector(s).DetectAnomalies("v", 30)
	for _, r := range records {
		assert.NotEqual(t, 500.0, r.Observed, "stale point must be outside the window")
	}
}

func TestDetectAnomalies_SortedByTimestamp(t *testing.T) {
	s := storeWith([]float64{10, 11, 9, 60, 10, 9, 11, 55, 10, 11})
	records := newDetector(s).DetectAnomalies("v", 0)

	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Timestamp.Before(records[i].Timestamp))
	}
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityLow, severityFor(2.1))
	assert.Equal(t, SeverityMedium, severityFor(2.6))
	assert.Equal(t, SeverityHigh, severityFor(3.6))
	assert.Equal(t, SeverityCritical, severityFor(5.0))
}

func TestFitLine(t *testing.T) {
	m := fitLine([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	assert.InDelta(t, 1.0, m.intercept, 1e-9)
	assert.InDelta(t, 2.0, m.slope, 1e-9)
}
