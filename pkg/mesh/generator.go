// Package mesh turns parsed PLY models into flat attribute buffers.
//
// Faces are fanned into triangles and every triangle corner gets one slot in
// each buffer. Positions, normals, UVs and colors are written three ways:
// the vertex's own value, the triangle average and the face average. Missing
// vertex normals are computed by summing face normals per vertex.
package mesh

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/plyview/pkg/loop"
	"github.com/Faultbox/plyview/pkg/ply"
)

// DefaultBudget is the per-turn time slice used for generation.
const DefaultBudget = 80 * time.Millisecond

const progressTitle = "Generating render data"

// Options configures a Generator.
type Options struct {
	Budget    time.Duration
	Scheduler loop.Scheduler
	Reporter  loop.Reporter
	Logger    *zap.Logger
}

// Generator builds Attributes from a model.
type Generator struct {
	opts Options
}

// NewGenerator creates a generator, filling in defaults for zero options.
func NewGenerator(opts Options) *Generator {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Reporter == nil {
		opts.Reporter = loop.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Generator{opts: opts}
}

// Generate detects the layout from header and builds the render data.
func (g *Generator) Generate(ctx context.Context, header *ply.Header, model *ply.Model) (*Attributes, error) {
	access, err := NewAccess(DetectLayout(header), model)
	if err != nil {
		return nil, err
	}
	return g.GenerateFrom(ctx, access)
}

// genState is owned by the running loop.
type genState struct {
	access   Access
	attrs    *Attributes
	computed *ComputedNormals
	slot     int

	// Per-face scratch, reused across faces.
	xyzIdx, uvIdx, normIdx, colIdx []int
	corners                        []int // 0..n-1, positions within the face
	pts, norms, cols               []mgl64.Vec3
	uvs                            []mgl64.Vec2
}

// GenerateFrom builds the render data from an access view. On cancellation
// or error nothing is returned.
func (g *Generator) GenerateFrom(ctx context.Context, access Access) (*Attributes, error) {
	start := time.Now()
	counts := access.Counts()
	has := access.Capabilities()

	attrs := &Attributes{
		Layout:           access.Layout(),
		Counts:           counts,
		Bounds:           access.Bounds(),
		Has:              has,
		ColorScale:       float32(access.ColorScale()),
		XYZ:              newBufferSet(3 * counts.Attributes),
		Normals:          newBufferSet(3 * counts.Attributes),
		Placeholder:      make([]float32, 3*counts.Attributes),
		TrianglesPerFace: make([]uint32, counts.Faces),
	}
	attrs.UVs = placeholderSet(attrs.Placeholder)
	if has.UVs {
		attrs.UVs = newBufferSet(2 * counts.Attributes)
	}
	attrs.Colors = placeholderSet(attrs.Placeholder)
	if has.Colors {
		attrs.Colors = newBufferSet(3 * counts.Attributes)
	}

	st := &genState{access: access, attrs: attrs}
	if !has.Normals {
		st.computed = NewComputedNormals(counts.Vertices, counts.Attributes)
	}

	g.opts.Reporter.SetTitle(progressTitle)
	opts := loop.Options{
		Budget:    g.opts.Budget,
		Scheduler: g.opts.Scheduler,
		Progress:  g.opts.Reporter.Update,
	}
	if _, err := loop.Run(ctx, opts, counts.Faces, st, g.face); err != nil {
		return nil, fmt.Errorf("generating attributes: %w", err)
	}

	if st.slot < counts.Attributes {
		attrs.trim(st.slot)
	}
	if st.computed != nil {
		st.computed.Finalize(attrs.Normals.Vert)
	}

	g.opts.Logger.Info("generated attribute data",
		zap.Stringer("layout", attrs.Layout),
		zap.Int("faces", counts.Faces),
		zap.Int("triangles", attrs.Counts.Triangles),
		zap.Int("skipped_faces", attrs.SkippedFaces),
		zap.Bool("computed_normals", st.computed != nil),
		zap.Duration("elapsed", time.Since(start)))
	return attrs, nil
}

// trim shrinks every buffer to the slots actually written.
func (a *Attributes) trim(slots int) {
	a.Counts.Attributes = slots
	a.Counts.Triangles = slots / 3
	a.XYZ = a.XYZ.trim(3 * slots)
	a.Normals = a.Normals.trim(3 * slots)
	a.Placeholder = a.Placeholder[:3*slots]
	if a.Has.UVs {
		a.UVs = a.UVs.trim(2 * slots)
	} else {
		a.UVs = placeholderSet(a.Placeholder)
	}
	if a.Has.Colors {
		a.Colors = a.Colors.trim(3 * slots)
	} else {
		a.Colors = placeholderSet(a.Placeholder)
	}
}

func (g *Generator) skip(st *genState, face int, reason string, fields ...zap.Field) {
	st.attrs.SkippedFaces++
	g.opts.Logger.Warn(reason, append([]zap.Field{zap.Int("face", face)}, fields...)...)
}

// gather3 resolves n corners through idx. Missing or out of range entries
// become zero and ok is false.
func gather3(dst []mgl64.Vec3, idx []int, n, pool int, get func(int) mgl64.Vec3) ([]mgl64.Vec3, bool) {
	dst = dst[:0]
	ok := len(idx) >= n
	for k := 0; k < n; k++ {
		if k >= len(idx) || idx[k] < 0 || idx[k] >= pool {
			ok = false
			dst = append(dst, mgl64.Vec3{})
			continue
		}
		dst = append(dst, get(idx[k]))
	}
	return dst, ok
}

func gather2(dst []mgl64.Vec2, idx []int, n, pool int, get func(int) mgl64.Vec2) ([]mgl64.Vec2, bool) {
	dst = dst[:0]
	ok := len(idx) >= n
	for k := 0; k < n; k++ {
		if k >= len(idx) || idx[k] < 0 || idx[k] >= pool {
			ok = false
			dst = append(dst, mgl64.Vec2{})
			continue
		}
		dst = append(dst, get(idx[k]))
	}
	return dst, ok
}

func (g *Generator) face(f int, st *genState) error {
	a := st.access
	out := st.attrs
	counts := out.Counts
	has := out.Has

	// Positions first; everything else is optional.
	st.xyzIdx = a.XYZIndexList(st.xyzIdx[:0], f)
	n := len(st.xyzIdx)
	if n < 3 {
		g.skip(st, f, "face has fewer than 3 vertices", zap.Int("vertices", n))
		return nil
	}

	var ok bool
	if st.pts, ok = gather3(st.pts, st.xyzIdx, n, counts.Vertices, a.VertexXYZ); !ok {
		g.skip(st, f, "face references missing vertex")
		return nil
	}

	tris := n - 2
	if st.slot+3*tris > len(out.XYZ.Vert)/3 {
		g.skip(st, f, "face exceeds triangle count from header statistics")
		return nil
	}
	out.TrianglesPerFace[f] = uint32(tris)

	// Whole-face aggregates.
	faceXYZ := Centroid(st.pts)
	faceNormal := FaceNormal(st.pts)

	// Optional capabilities, resolved in the same corner order as positions.
	var faceUV mgl64.Vec2
	if has.UVs {
		st.uvIdx = a.UVIndexList(st.uvIdx[:0], f)
		if st.uvs, ok = gather2(st.uvs, st.uvIdx, n, counts.UVVertices, a.VertexUV); !ok {
			g.opts.Logger.Warn("uv indices do not match face, using zero uv",
				zap.Int("face", f), zap.Int("vertices", n), zap.Int("uv_indices", len(st.uvIdx)))
		}
		faceUV = centroid2(st.uvs)
	}
	if has.Normals {
		st.normIdx = a.NormalIndexList(st.normIdx[:0], f)
		if st.norms, ok = gather3(st.norms, st.normIdx, n, counts.Vertices, a.VertexNormal); !ok {
			g.opts.Logger.Warn("normal indices do not match face, using zero normal", zap.Int("face", f))
		}
	}
	var faceColor mgl64.Vec3
	if has.Colors {
		st.colIdx = a.ColorIndexList(st.colIdx[:0], f)
		if st.cols, ok = gather3(st.cols, st.colIdx, n, counts.Vertices, a.VertexColor); !ok {
			g.opts.Logger.Warn("color indices do not match face, using black", zap.Int("face", f))
		}
		faceColor = Centroid(st.cols)
	}

	for len(st.corners) < n {
		st.corners = append(st.corners, len(st.corners))
	}

	// Fan out from corner 0. Every slot written below shares one index across
	// all buffer kinds.
	for t := 0; t < tris; t++ {
		corners := FanIndices(st.corners[:n], t)
		// Per-triangle aggregates
		p0, p1, p2 := st.pts[corners[0]], st.pts[corners[1]], st.pts[corners[2]]
		triXYZ := mean3(p0, p1, p2)
		triNormal := TriangleNormal(p0, p1, p2)

		var triUV mgl64.Vec2
		if has.UVs {
			triUV = mean2(st.uvs[corners[0]], st.uvs[corners[1]], st.uvs[corners[2]])
		}
		var triColor mgl64.Vec3
		if has.Colors {
			triColor = mean3(st.cols[corners[0]], st.cols[corners[1]], st.cols[corners[2]])
		}

		for _, c := range corners {
			slot := st.slot

			putVec3(out.XYZ.Vert, slot, st.pts[c])
			putVec3(out.XYZ.Tri, slot, triXYZ)
			putVec3(out.XYZ.Face, slot, faceXYZ)

			// Source normals win; otherwise sum face normals per vertex and
			// scatter them once every face is done.
			putVec3(out.Normals.Tri, slot, triNormal)
			putVec3(out.Normals.Face, slot, faceNormal)
			if has.Normals {
				putVec3(out.Normals.Vert, slot, st.norms[c])
			} else {
				st.computed.Accumulate(faceNormal, st.xyzIdx[c], slot)
			}

			if has.UVs {
				putVec2(out.UVs.Vert, slot, st.uvs[c])
				putVec2(out.UVs.Tri, slot, triUV)
				putVec2(out.UVs.Face, slot, faceUV)
			}
			if has.Colors {
				putVec3(out.Colors.Vert, slot, st.cols[c])
				putVec3(out.Colors.Tri, slot, triColor)
				putVec3(out.Colors.Face, slot, faceColor)
			}

			st.slot++
		}
	}
	return nil
}
