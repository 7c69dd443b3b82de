package ply

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrInvalidFileCode     = errors.New("invalid PLY file code")
	ErrHeaderNotFound      = errors.New("PLY header terminator not found")
	ErrMalformedHeader     = errors.New("malformed PLY header")
	ErrUnknownFormat       = errors.New("unknown PLY format")
	ErrUnknownPropertyType = errors.New("unknown property type")
	ErrTruncatedData       = errors.New("truncated element data")
	ErrInvalidNumber       = errors.New("invalid number")
)

const (
	fileCode = "ply"
	endToken = "end_header"

	// headerSearchLimit bounds the terminator scan.
	headerSearchLimit = 4096

	// headerSkip keeps the scan clear of the file code and format line.
	headerSkip = 20
)

// Format is the encoding of the element data following the header.
type Format uint8

const (
	ASCII Format = iota
	BinaryLittleEndian
	BinaryBigEndian
)

func (f Format) String() string {
	switch f {
	case ASCII:
		return "ascii"
	case BinaryLittleEndian:
		return "binary_little_endian"
	case BinaryBigEndian:
		return "binary_big_endian"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Property describes one column of an element.
type Property struct {
	Line          string // header line the property was read from
	Name          string
	IsList        bool
	TypeName      string // value type, or entry type for lists
	CountTypeName string // list length type, empty for scalars
}

// ElementSchema is an element declaration and its properties.
type ElementSchema struct {
	Name       string
	Count      int
	Properties []Property
}

// Header is the decoded PLY header.
type Header struct {
	FileCode   string
	FormatLine string
	Format     Format
	Version    string
	Comments   []string // full comment lines, in order
	Elements   []ElementSchema
}

// Element returns the schema with the given name.
func (h *Header) Element(name string) (*ElementSchema, bool) {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i], true
		}
	}
	return nil, false
}

// HasComment reports whether any comment contains substr, ignoring case.
func (h *Header) HasComment(substr string) bool {
	substr = strings.ToLower(substr)
	for _, c := range h.Comments {
		if strings.Contains(strings.ToLower(c), substr) {
			return true
		}
	}
	return false
}

// ExtractHeader locates and decodes the header at the start of data.
// It returns the header and its length in bytes, including the newline after
// end_header.
func ExtractHeader(data []byte) (*Header, int, error) {
	if len(data) < len(fileCode) || string(data[:len(fileCode)]) != fileCode {
		return nil, 0, ErrInvalidFileCode
	}

	n, err := findHeaderEnd(data)
	if err != nil {
		return nil, 0, err
	}

	// Header text is nominally ASCII; stray high bytes in comments decode as
	// Windows-1252 rather than failing.
	text, err := charmap.Windows1252.NewDecoder().Bytes(data[:n])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decoding: %v", ErrMalformedHeader, err)
	}

	h, err := parseHeaderLines(splitLines(string(text)))
	if err != nil {
		return nil, 0, err
	}
	return h, n, nil
}

func findHeaderEnd(data []byte) (int, error) {
	limit := min(len(data), headerSearchLimit)
	token := []byte(endToken)
	for i := headerSkip; i < limit; i++ {
		if data[i] != '\n' {
			continue
		}
		end := i
		if end > 0 && data[end-1] == '\r' {
			end--
		}
		if end >= len(token) && bytes.Equal(data[end-len(token):end], token) {
			return i + 1, nil
		}
	}
	return 0, ErrHeaderNotFound
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func parseHeaderLines(lines []string) (*Header, error) {
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: missing format line", ErrMalformedHeader)
	}

	h := &Header{
		FileCode:   lines[0],
		FormatLine: lines[1],
	}
	if err := h.parseFormat(); err != nil {
		return nil, err
	}

	idx := 2
	for idx < len(lines) && strings.HasPrefix(lines[idx], "comment") {
		h.Comments = append(h.Comments, lines[idx])
		idx++
	}

	var current *ElementSchema
	for _, line := range lines[idx:] {
		switch {
		case strings.HasPrefix(line, "element"):
			el, err := parseElementLine(line)
			if err != nil {
				return nil, err
			}
			if _, dup := h.Element(el.Name); dup {
				return nil, fmt.Errorf("%w: element %q declared twice", ErrMalformedHeader, el.Name)
			}
			h.Elements = append(h.Elements, el)
			current = &h.Elements[len(h.Elements)-1]

		case strings.HasPrefix(line, "property"):
			if current == nil {
				return nil, fmt.Errorf("%w: property before any element: %q", ErrMalformedHeader, line)
			}
			prop, err := parsePropertyLine(line)
			if err != nil {
				return nil, err
			}
			for _, p := range current.Properties {
				if p.Name == prop.Name {
					return nil, fmt.Errorf("%w: property %q declared twice in element %q",
						ErrMalformedHeader, prop.Name, current.Name)
				}
			}
			current.Properties = append(current.Properties, prop)
		}
	}

	if len(h.Elements) == 0 {
		return nil, fmt.Errorf("%w: no elements declared", ErrMalformedHeader)
	}
	return h, nil
}

func (h *Header) parseFormat() error {
	fields := strings.Fields(h.FormatLine)
	if len(fields) > 2 {
		h.Version = fields[2]
	}
	switch {
	case strings.Contains(h.FormatLine, "ascii"):
		h.Format = ASCII
	case strings.Contains(h.FormatLine, "binary"):
		h.Format = BinaryBigEndian
		if strings.Contains(h.FormatLine, "little_endian") {
			h.Format = BinaryLittleEndian
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, h.FormatLine)
	}
	return nil
}

func parseElementLine(line string) (ElementSchema, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "element" {
		return ElementSchema{}, fmt.Errorf("%w: bad element line %q", ErrMalformedHeader, line)
	}
	count, err := strconv.Atoi(fields[2])
	if err != nil || count < 0 {
		return ElementSchema{}, fmt.Errorf("%w: bad element count %q", ErrMalformedHeader, line)
	}
	return ElementSchema{Name: fields[1], Count: count}, nil
}

func parsePropertyLine(line string) (Property, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "property" {
		return Property{}, fmt.Errorf("%w: bad property line %q", ErrMalformedHeader, line)
	}
	if len(fields) == 5 && fields[1] == "list" {
		return Property{
			Line:          line,
			Name:          fields[4],
			IsList:        true,
			CountTypeName: fields[2],
			TypeName:      fields[3],
		}, nil
	}
	if len(fields) == 3 && fields[1] != "list" {
		return Property{Line: line, Name: fields[2], TypeName: fields[1]}, nil
	}
	return Property{}, fmt.Errorf("%w: bad property line %q", ErrMalformedHeader, line)
}
