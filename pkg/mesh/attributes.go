package mesh

import (
	"fmt"
	"strings"
)

// Shade selects which of the three parallel buffers feeds the renderer.
type Shade uint8

const (
	// ShadeVertex uses true per-vertex values (smooth).
	ShadeVertex Shade = iota
	// ShadeTriangle repeats one value per triangle.
	ShadeTriangle
	// ShadeFace repeats one value per source face.
	ShadeFace
)

func (s Shade) String() string {
	switch s {
	case ShadeTriangle:
		return "tri"
	case ShadeFace:
		return "face"
	}
	return "vert"
}

// ParseShade accepts vert, tri or face and common spellings of them.
func ParseShade(s string) (Shade, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "vert"), s == "smooth":
		return ShadeVertex, nil
	case strings.HasPrefix(s, "tri"):
		return ShadeTriangle, nil
	case strings.HasPrefix(s, "face"), s == "flat":
		return ShadeFace, nil
	}
	return ShadeVertex, fmt.Errorf("unknown shade %q", s)
}

// ColorMode is what the renderer paints a model with.
type ColorMode uint8

const (
	ColorNormals ColorMode = iota
	ColorObjectSpace
	ColorUV
	ColorVertex
	ColorMatcap
)

var colorModeNames = [...]string{
	ColorNormals:     "normals",
	ColorObjectSpace: "object_space",
	ColorUV:          "uv",
	ColorVertex:      "colors",
	ColorMatcap:      "matcap",
}

func (m ColorMode) String() string {
	if int(m) < len(colorModeNames) {
		return colorModeNames[m]
	}
	return fmt.Sprintf("ColorMode(%d)", uint8(m))
}

// ParseColorMode resolves a mode name.
func ParseColorMode(s string) (ColorMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, n := range colorModeNames {
		if n == s {
			return ColorMode(m), nil
		}
	}
	return ColorNormals, fmt.Errorf("unknown color mode %q", s)
}

// BufferSet is one attribute in vertex, triangle and face flavours. All three
// share slot indexing.
type BufferSet struct {
	Vert []float32
	Tri  []float32
	Face []float32
}

// Get returns the buffer for a shade.
func (b BufferSet) Get(s Shade) []float32 {
	switch s {
	case ShadeTriangle:
		return b.Tri
	case ShadeFace:
		return b.Face
	}
	return b.Vert
}

func newBufferSet(size int) BufferSet {
	return BufferSet{
		Vert: make([]float32, size),
		Tri:  make([]float32, size),
		Face: make([]float32, size),
	}
}

func (b BufferSet) trim(size int) BufferSet {
	return BufferSet{Vert: b.Vert[:size], Tri: b.Tri[:size], Face: b.Face[:size]}
}

func placeholderSet(p []float32) BufferSet {
	return BufferSet{Vert: p, Tri: p, Face: p}
}

// Attributes is GPU ready render data. Slot i of every buffer is the i-th
// (face, triangle, corner) in file order, with triangles fanned from each
// face's first corner.
type Attributes struct {
	Layout Layout
	Counts Counts
	Bounds Bounds
	Has    Capabilities

	// ColorScale maps Colors into [0, 1].
	ColorScale float32

	XYZ     BufferSet // 3 floats per slot
	Normals BufferSet // 3 floats per slot
	UVs     BufferSet // 2 floats per slot, or Placeholder
	Colors  BufferSet // 3 floats per slot, or Placeholder

	// Placeholder is a zero buffer of 3 floats per slot standing in for
	// missing UVs or colors.
	Placeholder []float32

	// TrianglesPerFace is the number of triangles each face produced.
	// Skipped faces have 0.
	TrianglesPerFace []uint32

	// SkippedFaces counts faces that produced no triangles.
	SkippedFaces int
}

// Components returns the vector width of the buffer Select picks for mode.
func Components(mode ColorMode) int32 {
	if mode == ColorUV {
		return 2
	}
	return 3
}

// Select returns the color-attribute buffer for mode and shade and the mode
// actually used. Modes whose data is missing fall back to normals.
func (a *Attributes) Select(mode ColorMode, shade Shade) ([]float32, ColorMode) {
	switch mode {
	case ColorObjectSpace:
		return a.XYZ.Get(shade), mode
	case ColorUV:
		if a.Has.UVs {
			return a.UVs.Get(shade), mode
		}
	case ColorVertex:
		if a.Has.Colors {
			return a.Colors.Get(shade), mode
		}
	case ColorMatcap:
		return a.Normals.Get(shade), mode
	}
	return a.Normals.Get(shade), ColorNormals
}

// ColorTransform returns the scale and offset that map the buffer Select
// picks for mode into displayable [0, 1] colors: c*scale + offset.
func (a *Attributes) ColorTransform(mode ColorMode) (float32, [3]float32) {
	switch mode {
	case ColorObjectSpace:
		d := a.Bounds.MaxDelta()
		if d <= 0 {
			return 1, [3]float32{}
		}
		var off [3]float32
		for k := range off {
			off[k] = float32(0.5 - a.Bounds.Mids[k]/d)
		}
		return float32(1 / d), off
	case ColorVertex:
		if a.Has.Colors {
			return a.ColorScale, [3]float32{}
		}
	case ColorUV:
		if a.Has.UVs {
			return 1, [3]float32{}
		}
	}
	return 0.5, [3]float32{0.5, 0.5, 0.5}
}
