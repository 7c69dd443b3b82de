// Package ply reads PLY polygon files into typed columns.
//
// Both ascii and binary (little and big endian) encodings are supported.
// Element rows are decoded through the time-sliced loop driver so a host UI
// keeps running while large models load.
package ply

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/plyview/pkg/loop"
)

// DefaultBudget is the per-turn time slice used for row parsing.
const DefaultBudget = 50 * time.Millisecond

// Options configures a Parser.
type Options struct {
	Budget    time.Duration
	Scheduler loop.Scheduler
	Reporter  loop.Reporter
	Logger    *zap.Logger
}

// Model is a fully parsed PLY file.
type Model struct {
	Header       *Header
	HeaderLength int
	Elements     map[string]*ElementData
	Order        []string // element names in header order
}

// Element returns the named element.
func (m *Model) Element(name string) (*ElementData, bool) {
	e, ok := m.Elements[name]
	return e, ok
}

// Parser turns raw PLY bytes into a Model.
type Parser struct {
	opts Options
}

// NewParser creates a parser, filling in defaults for zero options.
func NewParser(opts Options) *Parser {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Reporter == nil {
		opts.Reporter = loop.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Parser{opts: opts}
}

func (p *Parser) loopOptions() loop.Options {
	return loop.Options{
		Budget:    p.opts.Budget,
		Scheduler: p.opts.Scheduler,
		Progress:  p.opts.Reporter.Update,
	}
}

// Parse decodes the header and every element in data. Nothing is returned
// unless all elements parse.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Model, error) {
	start := time.Now()

	header, n, err := ExtractHeader(data)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Header:       header,
		HeaderLength: n,
		Elements:     make(map[string]*ElementData, len(header.Elements)),
		Order:        make([]string, 0, len(header.Elements)),
	}

	if header.Format == ASCII {
		err = p.parseASCII(ctx, data[n:], model)
	} else {
		err = p.parseBinary(ctx, data[n:], model)
	}
	if err != nil {
		return nil, err
	}

	p.opts.Logger.Info("parsed ply data",
		zap.String("format", header.Format.String()),
		zap.Int("elements", len(model.Order)),
		zap.Duration("elapsed", time.Since(start)))
	return model, nil
}

func (p *Parser) title(i, n int) {
	p.opts.Reporter.SetTitle(fmt.Sprintf("Parsing ply element data (%d of %d)", i+1, n))
}

func (p *Parser) parseBinary(ctx context.Context, body []byte, model *Model) error {
	var order binary.ByteOrder = binary.BigEndian
	if model.Header.Format == BinaryLittleEndian {
		order = binary.LittleEndian
	}

	parsers := make([]*BinaryRowParser, len(model.Header.Elements))
	for i, schema := range model.Header.Elements {
		rp, err := NewBinaryRowParser(schema, order, p.loopOptions())
		if err != nil {
			return err
		}
		parsers[i] = rp
	}

	offset := 0
	for i, schema := range model.Header.Elements {
		p.title(i, len(parsers))
		el, consumed, err := parsers[i].Parse(ctx, body, offset, schema.Count)
		if err != nil {
			return err
		}
		offset += consumed
		model.add(el)
	}

	if trailing := len(body) - offset; trailing > 0 {
		p.opts.Logger.Debug("trailing bytes after element data", zap.Int("bytes", trailing))
	}
	return nil
}

func (p *Parser) parseASCII(ctx context.Context, body []byte, model *Model) error {
	parsers := make([]*AsciiRowParser, len(model.Header.Elements))
	for i, schema := range model.Header.Elements {
		rp, err := NewAsciiRowParser(schema, p.loopOptions())
		if err != nil {
			return err
		}
		parsers[i] = rp
	}

	lines := strings.Split(string(body), "\n")
	offset := 0
	for i, schema := range model.Header.Elements {
		p.title(i, len(parsers))
		el, consumed, err := parsers[i].Parse(ctx, lines, offset, schema.Count)
		if err != nil {
			return err
		}
		offset += consumed
		model.add(el)
	}
	return nil
}

func (m *Model) add(el *ElementData) {
	m.Elements[el.Name] = el
	m.Order = append(m.Order, el.Name)
}
