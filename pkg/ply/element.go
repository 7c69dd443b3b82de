package ply

// Column is one parsed property. Scalar columns hold one value per row in
// Values. List columns hold every entry back to back in Values, with row i
// spanning Values[Offsets[i]:Offsets[i+1]].
type Column struct {
	PropertyInfo
	Values  Buffer
	Offsets []int
}

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.IsList {
		return len(c.Offsets) - 1
	}
	return c.Values.Len()
}

// At returns the value of a scalar column at row i.
func (c *Column) At(i int) float64 {
	return c.Values.At(i)
}

// AppendRow appends the entries of list row i to dst as ints.
func (c *Column) AppendRow(dst []int, i int) []int {
	for j := c.Offsets[i]; j < c.Offsets[i+1]; j++ {
		dst = append(dst, int(c.Values.At(j)))
	}
	return dst
}

// ElementData holds the parsed columns of one element.
type ElementData struct {
	Name    string
	Count   int
	Columns map[string]*Column
	Order   []string // property names in header order
}

// Column returns the named column.
func (e *ElementData) Column(name string) (*Column, bool) {
	c, ok := e.Columns[name]
	return c, ok
}

// Has reports whether every named column is present.
func (e *ElementData) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := e.Columns[n]; !ok {
			return false
		}
	}
	return true
}

// FirstList returns the first list property in header order. Face elements
// carry their vertex indices this way.
func (e *ElementData) FirstList() (*Column, bool) {
	for _, n := range e.Order {
		if c := e.Columns[n]; c.IsList {
			return c, true
		}
	}
	return nil, false
}
