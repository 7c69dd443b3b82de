package ply

// Buffer is a typed numeric column. Values keep the width declared in the
// header and are widened to float64 on read.
type Buffer interface {
	Len() int
	At(i int) float64
	Type() ScalarType

	set(i int, v float64)
	push(v float64)
}

type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

type typedBuffer[T number] struct {
	typ  ScalarType
	data []T
}

func (b *typedBuffer[T]) Len() int             { return len(b.data) }
func (b *typedBuffer[T]) At(i int) float64     { return float64(b.data[i]) }
func (b *typedBuffer[T]) Type() ScalarType     { return b.typ }
func (b *typedBuffer[T]) set(i int, v float64) { b.data[i] = T(v) }
func (b *typedBuffer[T]) push(v float64)       { b.data = append(b.data, T(v)) }

func makeTyped[T number](t ScalarType, length, capacity int) Buffer {
	return &typedBuffer[T]{typ: t, data: make([]T, length, capacity)}
}

func newBuffer(t ScalarType, length, capacity int) Buffer {
	switch t {
	case Char:
		return makeTyped[int8](t, length, capacity)
	case UChar:
		return makeTyped[uint8](t, length, capacity)
	case Short:
		return makeTyped[int16](t, length, capacity)
	case UShort:
		return makeTyped[uint16](t, length, capacity)
	case Int:
		return makeTyped[int32](t, length, capacity)
	case UInt:
		return makeTyped[uint32](t, length, capacity)
	case Float:
		return makeTyped[float32](t, length, capacity)
	default:
		return makeTyped[float64](Double, length, capacity)
	}
}
