package mesh

import "github.com/go-gl/mathgl/mgl64"

// ComputedNormals builds smooth vertex normals for models that carry none.
//
// Face normals are summed per vertex index, not per position: vertices that
// share a position but have distinct indices (UV seams) keep separate normals
// and shade as a crease.
type ComputedNormals struct {
	sums       []mgl64.Vec3
	slotVertex []int32 // attribute slot -> vertex index, -1 if unused
}

// NewComputedNormals allocates zeroed sums for vertexCount vertices and a
// slot map for slotCount attribute slots.
func NewComputedNormals(vertexCount, slotCount int) *ComputedNormals {
	c := &ComputedNormals{
		sums:       make([]mgl64.Vec3, vertexCount),
		slotVertex: make([]int32, slotCount),
	}
	for i := range c.slotVertex {
		c.slotVertex[i] = -1
	}
	return c
}

// Accumulate adds faceNormal to the vertex sum and remembers that slot shows
// this vertex.
func (c *ComputedNormals) Accumulate(faceNormal mgl64.Vec3, vertex, slot int) {
	c.sums[vertex] = c.sums[vertex].Add(faceNormal)
	c.slotVertex[slot] = int32(vertex)
}

// Finalize normalizes every sum and writes the result of each recorded slot
// into dst as xyz triples. Slots past len(dst)/3 are ignored.
func (c *ComputedNormals) Finalize(dst []float32) {
	for i, s := range c.sums {
		c.sums[i] = normalize(s)
	}

	slots := min(len(c.slotVertex), len(dst)/3)
	for slot := 0; slot < slots; slot++ {
		v := c.slotVertex[slot]
		if v < 0 {
			continue
		}
		putVec3(dst, slot, c.sums[v])
	}
}

func putVec3(dst []float32, slot int, v mgl64.Vec3) {
	o := 3 * slot
	dst[o] = float32(v[0])
	dst[o+1] = float32(v[1])
	dst[o+2] = float32(v[2])
}

func putVec2(dst []float32, slot int, v mgl64.Vec2) {
	o := 2 * slot
	dst[o] = float32(v[0])
	dst[o+1] = float32(v[1])
}
