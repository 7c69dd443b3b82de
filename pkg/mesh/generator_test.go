package mesh

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/plyview/pkg/loop"
	"github.com/Faultbox/plyview/pkg/ply"
)

// cubePLY is a unit cube with outward quads and vertex colors.
const cubePLY = "ply\nformat ascii 1.0\n" +
	"element vertex 8\n" +
	"property float x\nproperty float y\nproperty float z\n" +
	"property uchar red\nproperty uchar green\nproperty uchar blue\n" +
	"element face 6\nproperty list uchar int vertex_indices\n" +
	"end_header\n" +
	"0 0 0 255 0 0\n1 0 0 255 0 0\n1 1 0 0 255 0\n0 1 0 0 255 0\n" +
	"0 0 1 0 0 255\n1 0 1 0 0 255\n1 1 1 255 255 255\n0 1 1 0 0 0\n" +
	"4 0 3 2 1\n4 4 5 6 7\n4 0 1 5 4\n4 2 3 7 6\n4 1 2 6 5\n4 3 0 4 7\n"

// hingePLY is two triangles folded along the edge 0-1.
const hingePLY = "ply\nformat ascii 1.0\n" +
	"element vertex 4\nproperty float x\nproperty float y\nproperty float z\n" +
	"element face 2\nproperty list uchar int vertex_indices\n" +
	"end_header\n" +
	"0 0 0\n1 0 0\n0 1 0\n0 0 1\n" +
	"3 0 1 2\n3 0 3 1\n"

// pentagonPLY has one pentagon with normals and Blender style s/t uvs.
const pentagonPLY = "ply\nformat ascii 1.0\n" +
	"element vertex 5\n" +
	"property float x\nproperty float y\nproperty float z\n" +
	"property float nx\nproperty float ny\nproperty float nz\n" +
	"property float s\nproperty float t\n" +
	"element face 1\nproperty list uchar int vertex_indices\n" +
	"end_header\n" +
	"0 0 0 0 0 1 0 0\n" +
	"2 0 0 0 0 1 1 0\n" +
	"3 2 0 0 0 1 1 0.5\n" +
	"1 3 0 0 0 1 0.5 1\n" +
	"-1 2 0 0 0 1 0 0.5\n" +
	"5 0 1 2 3 4\n"

// artecPLY keeps uvs in their own pool with a separate face list.
const artecPLY = "ply\nformat ascii 1.0\n" +
	"comment Artec Studio export\n" +
	"element vertex 4\nproperty float x\nproperty float y\nproperty float z\n" +
	"element face 2\nproperty list uchar int vertex_indices\n" +
	"element multi_texture_vertex 3\nproperty float u\nproperty float v\n" +
	"element multi_texture_face 2\nproperty uchar tx\nproperty list uchar int texcoord_indices\n" +
	"end_header\n" +
	"0 0 0\n1 0 0\n1 1 0\n0 1 0\n" +
	"3 0 1 2\n3 0 2 3\n" +
	"0.1 0.2\n0.3 0.4\n0.5 0.6\n" +
	"0 3 2 1 0\n0 3 0 1 2\n"

func parseModel(t *testing.T, src string) *ply.Model {
	t.Helper()
	m, err := ply.NewParser(ply.Options{}).Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return m
}

func generate(t *testing.T, src string) *Attributes {
	t.Helper()
	m := parseModel(t, src)
	attrs, err := NewGenerator(Options{}).Generate(context.Background(), m.Header, m)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return attrs
}

func slotVec3(buf []float32, slot int) mgl64.Vec3 {
	o := 3 * slot
	return mgl64.Vec3{float64(buf[o]), float64(buf[o+1]), float64(buf[o+2])}
}

func slotVec2(buf []float32, slot int) mgl64.Vec2 {
	o := 2 * slot
	return mgl64.Vec2{float64(buf[o]), float64(buf[o+1])}
}

func TestGenerateCube(t *testing.T) {
	a := generate(t, cubePLY)

	if a.Layout != VertexCentric {
		t.Errorf("Layout = %v", a.Layout)
	}
	want := Counts{Faces: 6, Triangles: 12, Vertices: 8, UVVertices: 8, Attributes: 36}
	if a.Counts != want {
		t.Errorf("Counts = %+v, want %+v", a.Counts, want)
	}
	if a.Has != (Capabilities{Colors: true}) {
		t.Errorf("Has = %+v", a.Has)
	}
	if a.Bounds.Mids != [3]float64{0.5, 0.5, 0.5} || a.Bounds.MaxDelta() != 1 {
		t.Errorf("Bounds = %+v", a.Bounds)
	}
	if math.Abs(float64(a.ColorScale)-1.0/255) > 1e-9 {
		t.Errorf("ColorScale = %v", a.ColorScale)
	}

	for name, buf := range map[string][]float32{
		"xyz.vert": a.XYZ.Vert, "xyz.tri": a.XYZ.Tri, "xyz.face": a.XYZ.Face,
		"normals.vert": a.Normals.Vert, "normals.tri": a.Normals.Tri, "normals.face": a.Normals.Face,
		"colors.vert": a.Colors.Vert, "uvs.vert": a.UVs.Vert,
	} {
		if len(buf) != 3*36 {
			t.Errorf("len(%s) = %d, want %d", name, len(buf), 3*36)
		}
	}
	for _, n := range a.TrianglesPerFace {
		if n != 2 {
			t.Fatalf("TrianglesPerFace = %v", a.TrianglesPerFace)
		}
	}

	// Face 0 is the bottom quad 0 3 2 1; its second triangle is 0 2 1.
	if got := slotVec3(a.XYZ.Vert, 4); !vecNear(got, mgl64.Vec3{1, 1, 0}) {
		t.Errorf("slot 4 xyz = %v", got)
	}
	if got := slotVec3(a.XYZ.Face, 5); !vecNear(got, mgl64.Vec3{0.5, 0.5, 0}) {
		t.Errorf("face centroid = %v", got)
	}
	if got := slotVec3(a.XYZ.Tri, 3); !vecNear(got, mgl64.Vec3{2.0 / 3, 1.0 / 3, 0}) {
		t.Errorf("triangle centroid = %v", got)
	}
	if got := slotVec3(a.Normals.Face, 0); !vecNear(got, mgl64.Vec3{0, 0, -1}) {
		t.Errorf("bottom face normal = %v", got)
	}
	if got := slotVec3(a.Normals.Tri, 7); !vecNear(got, mgl64.Vec3{0, 0, 1}) {
		t.Errorf("top triangle normal = %v", got)
	}

	for slot := 0; slot < a.Counts.Attributes; slot++ {
		n := slotVec3(a.Normals.Vert, slot)
		if math.Abs(n.Len()-1) > 1e-5 {
			t.Fatalf("slot %d computed normal %v is not unit length", slot, n)
		}
		// Every cube corner normal points away from the centre.
		p := slotVec3(a.XYZ.Vert, slot).Sub(mgl64.Vec3{0.5, 0.5, 0.5})
		if n.Dot(p) <= 0 {
			t.Fatalf("slot %d normal %v points inward", slot, n)
		}
	}

	if got := slotVec3(a.Colors.Vert, 0); got != (mgl64.Vec3{255, 0, 0}) {
		t.Errorf("slot 0 color = %v", got)
	}
	for _, v := range a.UVs.Vert {
		if v != 0 {
			t.Fatal("placeholder uvs are not zero")
		}
	}
	if &a.UVs.Vert[0] != &a.Placeholder[0] || &a.UVs.Face[0] != &a.Placeholder[0] {
		t.Error("missing uvs do not share the placeholder")
	}
}

func TestGenerateComputedNormalsShareVertex(t *testing.T) {
	a := generate(t, hingePLY)

	r := math.Sqrt2 / 2
	tests := []struct {
		slot int
		want mgl64.Vec3
	}{
		{0, mgl64.Vec3{0, r, r}}, // vertex 0, first face
		{1, mgl64.Vec3{0, r, r}}, // vertex 1
		{2, mgl64.Vec3{0, 0, 1}}, // vertex 2, only in the flat face
		{3, mgl64.Vec3{0, r, r}}, // vertex 0, second face
		{4, mgl64.Vec3{0, 1, 0}}, // vertex 3
		{5, mgl64.Vec3{0, r, r}}, // vertex 1
	}
	for _, tt := range tests {
		if got := slotVec3(a.Normals.Vert, tt.slot); !vecNear(got, tt.want) {
			t.Errorf("slot %d normal = %v, want %v", tt.slot, got, tt.want)
		}
	}
}

func TestGeneratePentagon(t *testing.T) {
	a := generate(t, pentagonPLY)

	if a.Has != (Capabilities{Normals: true, UVs: true}) {
		t.Fatalf("Has = %+v", a.Has)
	}
	if a.Counts.Attributes != 9 || len(a.UVs.Vert) != 18 || len(a.XYZ.Vert) != 27 {
		t.Fatalf("sizes: attrs %d uv %d xyz %d", a.Counts.Attributes, len(a.UVs.Vert), len(a.XYZ.Vert))
	}
	if a.TrianglesPerFace[0] != 3 {
		t.Errorf("TrianglesPerFace = %v", a.TrianglesPerFace)
	}

	// Fan order: [0 1 2] [0 2 3] [0 3 4].
	order := []int{0, 1, 2, 0, 2, 3, 0, 3, 4}
	m := parseModel(t, pentagonPLY)
	access, _ := NewAccess(VertexCentric, m)
	for slot, v := range order {
		if got := slotVec3(a.XYZ.Vert, slot); !vecNear(got, access.VertexXYZ(v)) {
			t.Errorf("slot %d xyz = %v, want vertex %d", slot, got, v)
		}
		if got := slotVec2(a.UVs.Vert, slot); !vec2Near(got, access.VertexUV(v)) {
			t.Errorf("slot %d uv = %v, want vertex %d", slot, got, v)
		}
		if got := slotVec3(a.Normals.Vert, slot); !vecNear(got, mgl64.Vec3{0, 0, 1}) {
			t.Errorf("slot %d normal = %v", slot, got)
		}
	}

	if got := slotVec2(a.UVs.Face, 8); !vec2Near(got, mgl64.Vec2{0.5, 0.4}) {
		t.Errorf("face uv = %v", got)
	}
	if got := slotVec3(a.Normals.Face, 0); !vecNear(got, mgl64.Vec3{0, 0, 1}) {
		t.Errorf("Newell face normal = %v", got)
	}
}

func TestGenerateSkipsBadFaces(t *testing.T) {
	tests := []struct {
		name        string
		faces       string
		faceCount   int
		wantSlots   int
		wantPerFace []uint32
	}{
		{"edge face", "2 0 1\n3 0 1 2\n", 2, 3, []uint32{0, 1}},
		{"empty face", "0\n3 0 1 2\n3 0 2 3\n", 3, 6, []uint32{0, 1, 1}},
		{"index out of range", "3 0 1 9\n3 0 1 2\n", 2, 3, []uint32{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "ply\nformat ascii 1.0\n" +
				"element vertex 4\nproperty float x\nproperty float y\nproperty float z\n" +
				"element face " + strconv.Itoa(tt.faceCount) + "\nproperty list uchar int vertex_indices\n" +
				"end_header\n" +
				"0 0 0\n1 0 0\n0 1 0\n0 0 1\n" + tt.faces
			a := generate(t, src)

			if a.Counts.Attributes != tt.wantSlots {
				t.Errorf("Attributes = %d, want %d", a.Counts.Attributes, tt.wantSlots)
			}
			if len(a.XYZ.Vert) != 3*tt.wantSlots || len(a.Normals.Vert) != 3*tt.wantSlots {
				t.Errorf("buffer lengths %d/%d, want %d", len(a.XYZ.Vert), len(a.Normals.Vert), 3*tt.wantSlots)
			}
			if len(a.Placeholder) != 3*tt.wantSlots {
				t.Errorf("placeholder length %d", len(a.Placeholder))
			}
			if !reflect.DeepEqual(a.TrianglesPerFace, tt.wantPerFace) {
				t.Errorf("TrianglesPerFace = %v, want %v", a.TrianglesPerFace, tt.wantPerFace)
			}
			if a.SkippedFaces != 1 {
				t.Errorf("SkippedFaces = %d, want 1", a.SkippedFaces)
			}
		})
	}
}

func TestGenerateArtec(t *testing.T) {
	a := generate(t, artecPLY)

	if a.Layout != Artec {
		t.Fatalf("Layout = %v, want artec", a.Layout)
	}
	if a.Has != (Capabilities{UVs: true}) {
		t.Errorf("Has = %+v", a.Has)
	}

	// Face 0 xyz [0 1 2] uses uv [2 1 0]; face 1 xyz [0 2 3] uses uv [0 1 2].
	uvs := [][2]float64{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}}
	uvOrder := []int{2, 1, 0, 0, 1, 2}
	for slot, i := range uvOrder {
		want := mgl64.Vec2{uvs[i][0], uvs[i][1]}
		if got := slotVec2(a.UVs.Vert, slot); !vec2Near(got, want) {
			t.Errorf("slot %d uv = %v, want %v", slot, got, want)
		}
	}
	if got := slotVec3(a.XYZ.Vert, 5); !vecNear(got, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("slot 5 xyz = %v", got)
	}
}

func TestGenerateArtecWithoutTexture(t *testing.T) {
	src := "ply\nformat ascii 1.0\ncomment ARTEC\n" +
		"element vertex 3\nproperty float x\nproperty float y\nproperty float z\n" +
		"element face 1\nproperty list uchar int vertex_indices\n" +
		"end_header\n0 0 0\n1 0 0\n0 1 0\n3 0 1 2\n"
	a := generate(t, src)
	if a.Layout != Artec || a.Has.UVs {
		t.Errorf("Layout = %v, Has = %+v", a.Layout, a.Has)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	first := generate(t, cubePLY)
	second := generate(t, cubePLY)

	if !reflect.DeepEqual(first.XYZ, second.XYZ) ||
		!reflect.DeepEqual(first.Normals, second.Normals) ||
		!reflect.DeepEqual(first.Colors, second.Colors) ||
		!reflect.DeepEqual(first.TrianglesPerFace, second.TrianglesPerFace) {
		t.Error("two runs over the same bytes produced different buffers")
	}
}

type neverScheduler struct{}

func (neverScheduler) Schedule(func()) {}

func TestGenerateCancelled(t *testing.T) {
	m := parseModel(t, cubePLY)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attrs, err := NewGenerator(Options{Scheduler: neverScheduler{}}).Generate(ctx, m.Header, m)
	if !errors.Is(err, loop.ErrCancelled) {
		t.Errorf("Generate() error = %v, want ErrCancelled", err)
	}
	if attrs != nil {
		t.Error("cancelled generation returned attributes")
	}
}

type updateLog struct {
	updates []int
}

func (*updateLog) SetTitle(string) {}
func (l *updateLog) Update(p int) { l.updates = append(l.updates, p) }

func TestGenerateCancelledMidRun(t *testing.T) {
	m := parseModel(t, cubePLY)
	queue := loop.NewFrameQueue()
	progress := &updateLog{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		attrs *Attributes
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		// A nanosecond budget runs one face per turn.
		g := NewGenerator(Options{Budget: time.Nanosecond, Scheduler: queue, Reporter: progress})
		attrs, err := g.Generate(ctx, m.Header, m)
		done <- outcome{attrs, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for queue.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("generation never scheduled a turn")
		}
		time.Sleep(time.Millisecond)
	}
	if n := queue.Pump(); n != 1 {
		t.Fatalf("Pump() ran %d turns, want 1", n)
	}
	cancel()

	var out outcome
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Generate() did not return after cancel")
	}
	for queue.Len() > 0 {
		queue.Pump()
	}

	if !errors.Is(out.err, loop.ErrCancelled) {
		t.Errorf("Generate() error = %v, want ErrCancelled", out.err)
	}
	if out.attrs != nil {
		t.Error("cancelled generation returned attributes")
	}
	if len(progress.updates) != 1 || progress.updates[0] != 17 {
		t.Errorf("progress = %v, want [17] (one of six faces)", progress.updates)
	}
}

func TestGenerateMissingData(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{
			name:    "no faces",
			src:     "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n",
			wantErr: ErrMissingElement,
		},
		{
			name: "no z",
			src: "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\n" +
				"element face 0\nproperty list uchar int vertex_indices\nend_header\n0 0\n",
			wantErr: ErrMissingProperty,
		},
		{
			name: "no index list",
			src: "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\n" +
				"element face 1\nproperty int flags\nend_header\n0 0 0\n1\n",
			wantErr: ErrMissingProperty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parseModel(t, tt.src)
			_, err := NewGenerator(Options{}).Generate(context.Background(), m.Header, m)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	a := generate(t, cubePLY)

	tests := []struct {
		name     string
		mode     ColorMode
		shade    Shade
		want     []float32
		wantMode ColorMode
	}{
		{"object space", ColorObjectSpace, ShadeVertex, a.XYZ.Vert, ColorObjectSpace},
		{"face normals", ColorNormals, ShadeFace, a.Normals.Face, ColorNormals},
		{"colors", ColorVertex, ShadeTriangle, a.Colors.Tri, ColorVertex},
		{"uv falls back", ColorUV, ShadeVertex, a.Normals.Vert, ColorNormals},
		{"matcap", ColorMatcap, ShadeVertex, a.Normals.Vert, ColorMatcap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mode := a.Select(tt.mode, tt.shade)
			if mode != tt.wantMode || &got[0] != &tt.want[0] {
				t.Errorf("Select(%v, %v) picked %v", tt.mode, tt.shade, mode)
			}
		})
	}
}

func TestColorTransform(t *testing.T) {
	a := &Attributes{
		Bounds:     Bounds{Mids: [3]float64{1, 2, 3}, Deltas: [3]float64{4, 2, 1}},
		Has:        Capabilities{Colors: true},
		ColorScale: 1.0 / 255,
	}

	tests := []struct {
		mode   ColorMode
		scale  float32
		offset [3]float32
	}{
		{ColorNormals, 0.5, [3]float32{0.5, 0.5, 0.5}},
		{ColorMatcap, 0.5, [3]float32{0.5, 0.5, 0.5}},
		{ColorObjectSpace, 0.25, [3]float32{0.25, 0, -0.25}},
		{ColorVertex, 1.0 / 255, [3]float32{}},
		// No uvs: Select falls back to normals, so does the transform.
		{ColorUV, 0.5, [3]float32{0.5, 0.5, 0.5}},
	}

	for _, tt := range tests {
		scale, offset := a.ColorTransform(tt.mode)
		if scale != tt.scale || offset != tt.offset {
			t.Errorf("ColorTransform(%v) = %v, %v, want %v, %v", tt.mode, scale, offset, tt.scale, tt.offset)
		}
	}
}

func TestParseModes(t *testing.T) {
	if s, err := ParseShade("tri"); err != nil || s != ShadeTriangle {
		t.Errorf("ParseShade(tri) = %v, %v", s, err)
	}
	if _, err := ParseShade("bogus"); err == nil {
		t.Error("ParseShade(bogus) succeeded")
	}
	if m, err := ParseColorMode("object_space"); err != nil || m != ColorObjectSpace {
		t.Errorf("ParseColorMode(object_space) = %v, %v", m, err)
	}
}

func TestDetectLayout(t *testing.T) {
	tests := []struct {
		name     string
		comments []string
		want     Layout
	}{
		{"none", nil, VertexCentric},
		{"blender", []string{"comment Created by Blender"}, VertexCentric},
		{"artec mixed case", []string{"comment x", "comment Exported from ArTeC Studio 15"}, Artec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLayout(&ply.Header{Comments: tt.comments}); got != tt.want {
				t.Errorf("DetectLayout() = %v, want %v", got, tt.want)
			}
		})
	}
}
