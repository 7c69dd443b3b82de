package ply

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/plyview/pkg/loop"
)

// propertyReader is the resolved decode plan for one property.
type propertyReader struct {
	name      string
	list      bool
	countType ScalarType
	valueType ScalarType
}

func newReaders(schema ElementSchema) ([]propertyReader, error) {
	readers := make([]propertyReader, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		vt, err := ParseScalarType(p.TypeName)
		if err != nil {
			return nil, fmt.Errorf("element %q property %q: %w", schema.Name, p.Name, err)
		}
		r := propertyReader{name: p.Name, list: p.IsList, valueType: vt}
		if p.IsList {
			ct, err := ParseScalarType(p.CountTypeName)
			if err != nil {
				return nil, fmt.Errorf("element %q property %q: %w", schema.Name, p.Name, err)
			}
			if !ct.IsInteger() {
				return nil, fmt.Errorf("element %q property %q: %w: non-integer list count %s",
					schema.Name, p.Name, ErrUnknownPropertyType, ct)
			}
			r.countType = ct
		}
		readers = append(readers, r)
	}
	return readers, nil
}

// columnState is a column under construction plus its running statistics.
type columnState struct {
	col    *Column
	values ValueStats
	lists  ListStats
}

func newColumnStates(readers []propertyReader, rows int) []columnState {
	states := make([]columnState, len(readers))
	for i, r := range readers {
		col := &Column{PropertyInfo: PropertyInfo{
			Name:      r.name,
			Type:      r.valueType,
			IsList:    r.list,
			CountType: r.countType,
		}}
		if r.list {
			// Most list rows are triangles or quads.
			col.Values = newBuffer(r.valueType, 0, 3*rows)
			col.Offsets = make([]int, 1, rows+1)
			states[i].lists = NewListStats()
		} else {
			col.Values = newBuffer(r.valueType, rows, rows)
			states[i].values = NewValueStats()
		}
		states[i].col = col
	}
	return states
}

func (s *columnState) setScalar(row int, v float64) {
	s.col.Values.set(row, v)
	s.values.Update(v)
}

func (s *columnState) pushEntry(v float64) {
	s.col.Values.push(v)
	s.lists.Update(v)
}

func (s *columnState) endRow(n int) {
	s.col.Offsets = append(s.col.Offsets, s.col.Values.Len())
	s.lists.UpdateLength(n)
}

func finishElement(name string, rows int, states []columnState) *ElementData {
	el := &ElementData{
		Name:    name,
		Count:   rows,
		Columns: make(map[string]*Column, len(states)),
		Order:   make([]string, 0, len(states)),
	}
	for i := range states {
		s := &states[i]
		if s.col.IsList {
			s.col.applyList(s.lists)
		} else {
			s.col.applyValues(s.values)
		}
		el.Columns[s.col.Name] = s.col
		el.Order = append(el.Order, s.col.Name)
	}
	return el
}

// BinaryRowParser decodes one element from binary data.
type BinaryRowParser struct {
	name    string
	readers []propertyReader
	order   binary.ByteOrder
	opts    loop.Options
}

// NewBinaryRowParser resolves every property type up front so a bad type
// fails before any bytes are consumed.
func NewBinaryRowParser(schema ElementSchema, order binary.ByteOrder, opts loop.Options) (*BinaryRowParser, error) {
	readers, err := newReaders(schema)
	if err != nil {
		return nil, err
	}
	return &BinaryRowParser{name: schema.Name, readers: readers, order: order, opts: opts}, nil
}

type binaryState struct {
	data   []byte
	pos    int
	states []columnState
}

// Parse decodes rowCount rows starting at data[offset]. It returns the
// element and the number of bytes consumed.
func (p *BinaryRowParser) Parse(ctx context.Context, data []byte, offset, rowCount int) (*ElementData, int, error) {
	st := &binaryState{data: data, pos: offset, states: newColumnStates(p.readers, rowCount)}

	_, err := loop.Run(ctx, p.opts, rowCount, st, p.parseRow)
	if err != nil {
		return nil, 0, fmt.Errorf("element %q: %w", p.name, err)
	}
	return finishElement(p.name, rowCount, st.states), st.pos - offset, nil
}

func (p *BinaryRowParser) parseRow(row int, st *binaryState) error {
	for i, r := range p.readers {
		s := &st.states[i]
		if !r.list {
			v, err := p.read(st, r.valueType, row)
			if err != nil {
				return err
			}
			s.setScalar(row, v)
			continue
		}

		count, err := p.read(st, r.countType, row)
		if err != nil {
			return err
		}
		n := int(count)
		if n < 0 {
			return fmt.Errorf("row %d: %w: negative list length %d", row, ErrInvalidNumber, n)
		}
		if st.pos+n*r.valueType.Size() > len(st.data) {
			return fmt.Errorf("row %d: %w", row, ErrTruncatedData)
		}
		for j := 0; j < n; j++ {
			v, _ := p.read(st, r.valueType, row)
			s.pushEntry(v)
		}
		s.endRow(n)
	}
	return nil
}

func (p *BinaryRowParser) read(st *binaryState, t ScalarType, row int) (float64, error) {
	size := t.Size()
	if st.pos+size > len(st.data) {
		return 0, fmt.Errorf("row %d: %w", row, ErrTruncatedData)
	}
	v := decoders[t](st.data[st.pos:], p.order)
	st.pos += size
	return v, nil
}

// AsciiRowParser decodes one element from whitespace separated text, one row
// per line.
type AsciiRowParser struct {
	name    string
	readers []propertyReader
	opts    loop.Options
}

// NewAsciiRowParser resolves every property type up front.
func NewAsciiRowParser(schema ElementSchema, opts loop.Options) (*AsciiRowParser, error) {
	readers, err := newReaders(schema)
	if err != nil {
		return nil, err
	}
	return &AsciiRowParser{name: schema.Name, readers: readers, opts: opts}, nil
}

type asciiState struct {
	lines  []string
	cursor int
	states []columnState
}

// Parse decodes rowCount rows starting at lines[offset]. Blank lines are
// skipped. It returns the element and the number of lines consumed.
func (p *AsciiRowParser) Parse(ctx context.Context, lines []string, offset, rowCount int) (*ElementData, int, error) {
	st := &asciiState{lines: lines, cursor: offset, states: newColumnStates(p.readers, rowCount)}

	_, err := loop.Run(ctx, p.opts, rowCount, st, p.parseRow)
	if err != nil {
		return nil, 0, fmt.Errorf("element %q: %w", p.name, err)
	}
	return finishElement(p.name, rowCount, st.states), st.cursor - offset, nil
}

func (p *AsciiRowParser) parseRow(row int, st *asciiState) error {
	var tokens []string
	for len(tokens) == 0 {
		if st.cursor >= len(st.lines) {
			return fmt.Errorf("row %d: %w", row, ErrTruncatedData)
		}
		tokens = strings.Fields(st.lines[st.cursor])
		st.cursor++
	}
	lineNo := st.cursor // 1-based within the data section

	pos := 0
	next := func() (float64, error) {
		if pos >= len(tokens) {
			return 0, fmt.Errorf("row %d (line %d): %w", row, lineNo, ErrTruncatedData)
		}
		v, err := strconv.ParseFloat(tokens[pos], 64)
		if err != nil {
			return 0, fmt.Errorf("row %d (line %d): %w: %q", row, lineNo, ErrInvalidNumber, tokens[pos])
		}
		pos++
		return v, nil
	}

	for i, r := range p.readers {
		s := &st.states[i]
		if !r.list {
			v, err := next()
			if err != nil {
				return err
			}
			s.setScalar(row, v)
			continue
		}

		count, err := next()
		if err != nil {
			return err
		}
		n := int(count)
		if n < 0 || float64(n) != count {
			return fmt.Errorf("row %d (line %d): %w: list length %q", row, lineNo, ErrInvalidNumber, tokens[pos-1])
		}
		for j := 0; j < n; j++ {
			v, err := next()
			if err != nil {
				return err
			}
			s.pushEntry(v)
		}
		s.endRow(n)
	}
	return nil
}
