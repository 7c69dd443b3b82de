package ply

import "math"

// ValueStats tracks the range of a column in a single forward pass.
type ValueStats struct {
	Min   float64
	Max   float64
	Count int
}

// NewValueStats returns stats ready for the first Update.
func NewValueStats() ValueStats {
	return ValueStats{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Update folds v into the running range.
func (s *ValueStats) Update(v float64) {
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
	s.Count++
}

// Mid is the centre of the range.
func (s ValueStats) Mid() float64 {
	if s.Count == 0 {
		return 0
	}
	return (s.Min + s.Max) / 2
}

// Delta is the width of the range.
func (s ValueStats) Delta() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Max - s.Min
}

// ListStats adds row length tracking for list properties.
type ListStats struct {
	ValueStats
	MinLength     int
	MaxLength     int
	TriangleCount int
	Rows          int
}

// NewListStats returns stats ready for the first row.
func NewListStats() ListStats {
	return ListStats{ValueStats: NewValueStats()}
}

// UpdateLength records one row of n entries. A row of n entries fans into
// n-2 triangles; shorter rows add none.
func (s *ListStats) UpdateLength(n int) {
	if s.Rows == 0 || n < s.MinLength {
		s.MinLength = n
	}
	if s.Rows == 0 || n > s.MaxLength {
		s.MaxLength = n
	}
	s.TriangleCount += max(0, n-2)
	s.Rows++
}

// PropertyInfo is the schema and final statistics of a parsed column.
type PropertyInfo struct {
	Name      string
	Type      ScalarType
	IsList    bool
	CountType ScalarType

	Min   float64
	Max   float64
	Mid   float64
	Delta float64

	// List properties only.
	MinLength     int
	MaxLength     int
	TriangleCount int
}

func (p *PropertyInfo) applyValues(s ValueStats) {
	if s.Count == 0 {
		p.Min, p.Max, p.Mid, p.Delta = 0, 0, 0, 0
		return
	}
	p.Min = s.Min
	p.Max = s.Max
	p.Mid = s.Mid()
	p.Delta = s.Delta()
}

func (p *PropertyInfo) applyList(s ListStats) {
	p.applyValues(s.ValueStats)
	p.MinLength = s.MinLength
	p.MaxLength = s.MaxLength
	p.TriangleCount = s.TriangleCount
}
