package ply

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ScalarType is one of the eight PLY numeric types.
type ScalarType uint8

const (
	Char ScalarType = iota
	UChar
	Short
	UShort
	Int
	UInt
	Float
	Double
)

var scalarNames = [...]string{
	Char:   "char",
	UChar:  "uchar",
	Short:  "short",
	UShort: "ushort",
	Int:    "int",
	UInt:   "uint",
	Float:  "float",
	Double: "double",
}

var scalarSizes = [...]int{
	Char:   1,
	UChar:  1,
	Short:  2,
	UShort: 2,
	Int:    4,
	UInt:   4,
	Float:  4,
	Double: 8,
}

// Sized aliases written by many exporters.
var scalarAliases = map[string]ScalarType{
	"int8":    Char,
	"uint8":   UChar,
	"int16":   Short,
	"uint16":  UShort,
	"int32":   Int,
	"uint32":  UInt,
	"float32": Float,
	"float64": Double,
}

// ParseScalarType resolves a type token from a property line.
func ParseScalarType(name string) (ScalarType, error) {
	for t, n := range scalarNames {
		if n == name {
			return ScalarType(t), nil
		}
	}
	if t, ok := scalarAliases[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPropertyType, name)
}

func (t ScalarType) String() string {
	if int(t) < len(scalarNames) {
		return scalarNames[t]
	}
	return fmt.Sprintf("ScalarType(%d)", uint8(t))
}

// Size returns the width in bytes of one binary value.
func (t ScalarType) Size() int {
	return scalarSizes[t]
}

// IsInteger reports whether values of this type are whole numbers.
func (t ScalarType) IsInteger() bool {
	return t != Float && t != Double
}

type decodeFunc func(b []byte, order binary.ByteOrder) float64

// decoders reads one value from the front of b. b must hold at least Size() bytes.
var decoders = [...]decodeFunc{
	Char:   func(b []byte, _ binary.ByteOrder) float64 { return float64(int8(b[0])) },
	UChar:  func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) },
	Short:  func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) },
	UShort: func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) },
	Int:    func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) },
	UInt:   func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) },
	Float:  func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) },
	Double: func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) },
}
