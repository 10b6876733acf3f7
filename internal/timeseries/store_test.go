package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(day int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func TestStore_AddAndPoints(t *testing.T) {
	s := NewStore(100)

	s.Add("velocity", ts(0), 10, map[string]string{"sprint": "1"})
	s.Add("velocity", ts(1), 12, nil)
	s.Add("quality", ts(0), 0.9, nil)

	points := s.Points("velocity")
	require.Len(t, points, 2)
	assert.Equal(t, 10.0, points[0].Value)
	assert.Equal(t, "1", points[0].Metadata["sprint"])
	assert.Equal(t, 12.0, points[1].Value)

	assert.Equal(t, 1, s.Len("quality"))
	assert.Empty(t, s.Points("unknown"))
	assert.ElementsMatch(t, []string{"quality", "velocity"}, s.Variables())
}

func TestStore_FIFOEviction(t *testing.T) {
	s := NewStore(3)

	for i := 0; i < 5; i++ {
		s.Add("v", ts(i), float64(i), nil)
	}

	points := s.Points("v")
	require.Len(t, points, 3)
	// Oldest two evicted.
	assert.Equal(t, 2.0, points[0].Value)
	assert.Equal(t, 4.0, points[2].Value)
}

func TestStore_OutOfOrderFlaggedNotRejected(t *testing.T) {
	s := NewStore(100)

	s.Add("v", ts(0), 1, nil)
	s.Add("v", ts(2), 2, nil)
	s.Add("v", ts(1), 3, nil) // late arrival

	points := s.Points("v")
	require.Len(t, points, 3)
	assert.False(t, points[0].OutOfOrder)
	assert.False(t, points[1].OutOfOrder)
	assert.True(t, points[2].OutOfOrder)

	// Quality drops below 1 but the point stays.
	assert.Less(t, s.QualityFraction("v"), 1.0)
	assert.Greater(t, s.QualityFraction("v"), 0.0)
}

func TestStore_Window(t *testing.T) {
	s := NewStore(100)
	for i := 0; i < 10; i++ {
		s.Add("v", ts(i), float64(i), nil)
	}

	window := s.Window("v", ts(3), ts(6))
	require.Len(t, window, 4)
	assert.Equal(t, 3.0, window[0].Value)
	assert.Equal(t, 6.0, window[3].Value)
}

func TestStore_Restore(t *testing.T) {
	s := NewStore(100)
	s.Add("v", ts(0), 1, nil)

	restored := []Point{
		{Timestamp: ts(5), Value: 50},
		{Timestamp: ts(6), Value: 60},
	}
	s.Restore("v", restored)

	points := s.Points("v")
	require.Len(t, points, 2)
	assert.Equal(t, 50.0, points[0].Value)

	// Appending after restore keeps working.
	s.Add("v", ts(7), 70, nil)
	assert.Equal(t, 3, s.Len("v"))
}

func TestStore_QualityFractionUnknownVariable(t *testing.T) {
	s := NewStore(100)
	assert.Equal(t, 1.0, s.QualityFraction("unknown"))
}
