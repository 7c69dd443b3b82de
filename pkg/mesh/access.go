package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/plyview/pkg/ply"
)

var (
	ErrMissingElement  = errors.New("missing element")
	ErrMissingProperty = errors.New("missing property")
)

// Layout names a way of storing mesh data in PLY elements.
type Layout uint8

const (
	// VertexCentric stores every distinct (position, normal, uv, color)
	// combination as one vertex row and indexes them with one face list.
	VertexCentric Layout = iota

	// Artec keeps positions and UVs in separate pools, each with its own face
	// list. Produced by Artec scanner software.
	Artec
)

func (l Layout) String() string {
	if l == Artec {
		return "artec"
	}
	return "vertex-centric"
}

// artecMarker marks Artec exports in header comments.
const artecMarker = "artec"

// DetectLayout picks the layout from header comments.
func DetectLayout(h *ply.Header) Layout {
	if h.HasComment(artecMarker) {
		return Artec
	}
	return VertexCentric
}

// Capabilities lists the optional data a model provides.
type Capabilities struct {
	Normals bool
	Colors  bool
	UVs     bool
}

// Counts are model and generated buffer sizes.
type Counts struct {
	Faces      int
	Triangles  int // sum of (corners - 2) over faces
	Vertices   int // rows in the position pool
	UVVertices int // rows in the uv pool, equals Vertices unless Artec
	Attributes int // 3 * Triangles
}

// Bounds are per-axis centre and extent of the positions.
type Bounds struct {
	Mids   [3]float64
	Deltas [3]float64
}

// MaxDelta is the largest extent on any axis.
func (b Bounds) MaxDelta() float64 {
	return max(b.Deltas[0], b.Deltas[1], b.Deltas[2])
}

// Access is a uniform indexed-vertex view of a parsed model.
//
// The *IndexList methods append the face's indices to dst and return it.
// Without the capability they return dst unchanged.
type Access interface {
	Layout() Layout
	Capabilities() Capabilities
	Counts() Counts
	Bounds() Bounds

	// ColorScale maps stored color values into [0, 1].
	ColorScale() float64

	XYZIndexList(dst []int, face int) []int
	UVIndexList(dst []int, face int) []int
	NormalIndexList(dst []int, face int) []int
	ColorIndexList(dst []int, face int) []int

	VertexXYZ(i int) mgl64.Vec3
	VertexUV(i int) mgl64.Vec2
	VertexNormal(i int) mgl64.Vec3
	VertexColor(i int) mgl64.Vec3
}

// NewAccess builds the view for layout over model.
func NewAccess(layout Layout, model *ply.Model) (Access, error) {
	if layout == Artec {
		return newArtecAccess(model)
	}
	return newVertexCentricAccess(model)
}

func element(model *ply.Model, name string) (*ply.ElementData, error) {
	el, ok := model.Element(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingElement, name)
	}
	return el, nil
}

func columns(el *ply.ElementData, names ...string) ([]*ply.Column, error) {
	cols := make([]*ply.Column, len(names))
	for i, n := range names {
		c, ok := el.Column(n)
		if !ok || c.IsList {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingProperty, el.Name, n)
		}
		cols[i] = c
	}
	return cols, nil
}

func faceList(el *ply.ElementData) (*ply.Column, error) {
	c, ok := el.FirstList()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no index list", ErrMissingProperty, el.Name)
	}
	return c, nil
}

func boundsOf(xyz [3]*ply.Column) Bounds {
	var b Bounds
	for i, c := range xyz {
		b.Mids[i] = c.Mid
		b.Deltas[i] = c.Delta
	}
	return b
}

func vec3At(cols [3]*ply.Column, i int) mgl64.Vec3 {
	return mgl64.Vec3{cols[0].At(i), cols[1].At(i), cols[2].At(i)}
}

func colorScale(t ply.ScalarType) float64 {
	switch t {
	case ply.Char, ply.UChar:
		return 1.0 / 255
	case ply.Short, ply.UShort:
		return 1.0 / 65535
	case ply.Int, ply.UInt:
		return 1.0 / 4294967295
	}
	return 1
}

// vertexCentricAccess shares one face list across every attribute.
type vertexCentricAccess struct {
	xyz     [3]*ply.Column
	normals [3]*ply.Column
	colors  [3]*ply.Column
	uvs     [2]*ply.Column
	faces   *ply.Column
	caps    Capabilities
	counts  Counts
}

func newVertexCentricAccess(model *ply.Model) (*vertexCentricAccess, error) {
	vertex, err := element(model, "vertex")
	if err != nil {
		return nil, err
	}
	face, err := element(model, "face")
	if err != nil {
		return nil, err
	}

	a := &vertexCentricAccess{}
	xyz, err := columns(vertex, "x", "y", "z")
	if err != nil {
		return nil, err
	}
	copy(a.xyz[:], xyz)

	if a.faces, err = faceList(face); err != nil {
		return nil, err
	}

	if n, err := columns(vertex, "nx", "ny", "nz"); err == nil {
		copy(a.normals[:], n)
		a.caps.Normals = true
	}
	if c, err := columns(vertex, "red", "green", "blue"); err == nil {
		copy(a.colors[:], c)
		a.caps.Colors = true
	}
	// Blender writes s/t instead of u/v.
	for _, keys := range [][2]string{{"u", "v"}, {"s", "t"}} {
		if uv, err := columns(vertex, keys[0], keys[1]); err == nil {
			copy(a.uvs[:], uv)
			a.caps.UVs = true
			break
		}
	}

	a.counts = Counts{
		Faces:      face.Count,
		Triangles:  a.faces.TriangleCount,
		Vertices:   vertex.Count,
		UVVertices: vertex.Count,
		Attributes: 3 * a.faces.TriangleCount,
	}
	return a, nil
}

func (a *vertexCentricAccess) Layout() Layout             { return VertexCentric }
func (a *vertexCentricAccess) Capabilities() Capabilities { return a.caps }
func (a *vertexCentricAccess) Counts() Counts             { return a.counts }
func (a *vertexCentricAccess) Bounds() Bounds             { return boundsOf(a.xyz) }

func (a *vertexCentricAccess) ColorScale() float64 {
	if !a.caps.Colors {
		return 1
	}
	return colorScale(a.colors[0].Type)
}

func (a *vertexCentricAccess) XYZIndexList(dst []int, face int) []int {
	return a.faces.AppendRow(dst, face)
}

func (a *vertexCentricAccess) UVIndexList(dst []int, face int) []int {
	if !a.caps.UVs {
		return dst
	}
	return a.faces.AppendRow(dst, face)
}

func (a *vertexCentricAccess) NormalIndexList(dst []int, face int) []int {
	if !a.caps.Normals {
		return dst
	}
	return a.faces.AppendRow(dst, face)
}

func (a *vertexCentricAccess) ColorIndexList(dst []int, face int) []int {
	if !a.caps.Colors {
		return dst
	}
	return a.faces.AppendRow(dst, face)
}

func (a *vertexCentricAccess) VertexXYZ(i int) mgl64.Vec3    { return vec3At(a.xyz, i) }
func (a *vertexCentricAccess) VertexNormal(i int) mgl64.Vec3 { return vec3At(a.normals, i) }
func (a *vertexCentricAccess) VertexColor(i int) mgl64.Vec3  { return vec3At(a.colors, i) }

func (a *vertexCentricAccess) VertexUV(i int) mgl64.Vec2 {
	return mgl64.Vec2{a.uvs[0].At(i), a.uvs[1].At(i)}
}

// Artec element names for the texture coordinate pool and its face list.
const (
	artecUVVertex = "multi_texture_vertex"
	artecUVFace   = "multi_texture_face"
)

// artecAccess indexes positions and UVs through separate face lists. Artec
// exports carry no normals or colors.
type artecAccess struct {
	xyz     [3]*ply.Column
	uvs     [2]*ply.Column
	faces   *ply.Column
	uvFaces *ply.Column
	caps    Capabilities
	counts  Counts
}

func newArtecAccess(model *ply.Model) (*artecAccess, error) {
	vertex, err := element(model, "vertex")
	if err != nil {
		return nil, err
	}
	face, err := element(model, "face")
	if err != nil {
		return nil, err
	}

	a := &artecAccess{}
	xyz, err := columns(vertex, "x", "y", "z")
	if err != nil {
		return nil, err
	}
	copy(a.xyz[:], xyz)
	if a.faces, err = faceList(face); err != nil {
		return nil, err
	}

	a.counts = Counts{
		Faces:      face.Count,
		Triangles:  a.faces.TriangleCount,
		Vertices:   vertex.Count,
		Attributes: 3 * a.faces.TriangleCount,
	}

	uvVertex, okV := model.Element(artecUVVertex)
	uvFace, okF := model.Element(artecUVFace)
	if !okV || !okF {
		return a, nil
	}
	uv, err := columns(uvVertex, "u", "v")
	if err != nil {
		return nil, err
	}
	copy(a.uvs[:], uv)
	if a.uvFaces, err = faceList(uvFace); err != nil {
		return nil, err
	}
	a.caps.UVs = true
	a.counts.UVVertices = uvVertex.Count
	return a, nil
}

func (a *artecAccess) Layout() Layout             { return Artec }
func (a *artecAccess) Capabilities() Capabilities { return a.caps }
func (a *artecAccess) Counts() Counts             { return a.counts }
func (a *artecAccess) Bounds() Bounds             { return boundsOf(a.xyz) }
func (a *artecAccess) ColorScale() float64        { return 1 }

func (a *artecAccess) XYZIndexList(dst []int, face int) []int {
	return a.faces.AppendRow(dst, face)
}

func (a *artecAccess) UVIndexList(dst []int, face int) []int {
	if !a.caps.UVs || face >= a.uvFaces.Len() {
		return dst
	}
	return a.uvFaces.AppendRow(dst, face)
}

func (a *artecAccess) NormalIndexList(dst []int, _ int) []int { return dst }
func (a *artecAccess) ColorIndexList(dst []int, _ int) []int  { return dst }

func (a *artecAccess) VertexXYZ(i int) mgl64.Vec3 { return vec3At(a.xyz, i) }

func (a *artecAccess) VertexUV(i int) mgl64.Vec2 {
	return mgl64.Vec2{a.uvs[0].At(i), a.uvs[1].At(i)}
}

func (a *artecAccess) VertexNormal(int) mgl64.Vec3 { return mgl64.Vec3{} }
func (a *artecAccess) VertexColor(int) mgl64.Vec3  { return mgl64.Vec3{} }
