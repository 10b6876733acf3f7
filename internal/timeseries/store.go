// Package timeseries provides the bounded per-variable history the
// forecaster and anomaly detector read from.
package timeseries

import (
	"sort"
	"sync"
	"time"
)

// Point is one observation of a named variable.
type Point struct {
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	// OutOfOrder marks a point that arrived with a timestamp earlier than
	// the series tail. Accepted, but counted against series quality.
	OutOfOrder bool `json:"out_of_order,omitempty"`
}

// Store is an append-only, bounded FIFO per variable name.
//
// When a series is at capacity the oldest point is evicted. Out-of-order
// appends are flagged rather than rejected; the flag feeds the forecaster's
// confidence, not an error path.
type Store struct {
	mu       sync.RWMutex
	capacity int
	series   map[string]*series
}

type series struct {
	points []Point
	last   time.Time
}

// NewStore creates a store with the given per-variable capacity.
// Non-positive capacity falls back to 1000.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*series),
	}
}

// Add appends a point to the named variable, evicting the oldest point when
// the series is at capacity.
func (s *Store) Add(variable string, ts time.Time, value float64, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr := s.series[variable]
	if sr == nil {
		sr = &series{}
		s.series[variable] = sr
	}

	p := Point{Timestamp: ts, Value: value, Metadata: metadata}
	if !sr.last.IsZero() && ts.Before(sr.last) {
		p.OutOfOrder = true
	} else {
		sr.last = ts
	}

	sr.points = append(sr.points, p)
	if len(sr.points) > s.capacity {
		sr.points = sr.points[len(sr.points)-s.capacity:]
	}
}

// Points returns a copy of the full history for a variable, oldest first in
// arrival order. Returns nil for unknown variables.
func (s *Store) Points(variable string) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr := s.series[variable]
	if sr == nil {
		return nil
	}
	out := make([]Point, len(sr.points))
	copy(out, sr.points)
	return out
}

// Window returns a time-sorted copy of the points with timestamps in
// [from, to]. Out-of-order arrivals are ordered by timestamp here so the
// statistical passes see a coherent sequence.
func (s *Store) Window(variable string, from, to time.Time) []Point {
	points := s.Points(variable)
	if points == nil {
		return nil
	}
	out := points[:0:0]
	for _, p := range points {
		if p.Timestamp.Before(from) || p.Timestamp.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Len returns the number of points stored for a variable.
func (s *Store) Len(variable string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr := s.series[variable]
	if sr == nil {
		return 0
	}
	return len(sr.points)
}

// Variables returns the sorted list of known variable names.
func (s *Store) Variables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for name := range s.series {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// QualityFraction returns the fraction of in-order points for a variable,
// 1.0 for an empty or unknown series.
func (s *Store) QualityFraction(variable string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr := s.series[variable]
	if sr == nil || len(sr.points) == 0 {
		return 1.0
	}
	ordered := 0
	for _, p := range sr.points {
		if !p.OutOfOrder {
			ordered++
		}
	}
	return float64(ordered) / float64(len(sr.points))
}

// Restore replaces the history of a variable, used when loading a snapshot.
func (s *Store) Restore(variable string, points []Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(points) > s.capacity {
		points = points[len(points)-s.capacity:]
	}
	sr := &series{points: append([]Point(nil), points...)}
	for _, p := range sr.points {
		if p.Timestamp.After(sr.last) {
			sr.last = p.Timestamp
		}
	}
	s.series[variable] = sr
}
