package mesh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const eps = 1e-6

func vecNear(a, b mgl64.Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func vec2Near(a, b mgl64.Vec2) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestFanIndices(t *testing.T) {
	list := []int{10, 11, 12, 13, 14}
	want := [][3]int{{10, 11, 12}, {10, 12, 13}, {10, 13, 14}}
	for tri, w := range want {
		if got := FanIndices(list, tri); got != w {
			t.Errorf("FanIndices(%d) = %v, want %v", tri, got, w)
		}
	}
}

func TestFaceNormal(t *testing.T) {
	pentagon := make([]mgl64.Vec3, 5)
	for i := range pentagon {
		a := 2 * math.Pi * float64(i) / 5
		pentagon[i] = mgl64.Vec3{math.Cos(a), math.Sin(a), 3}
	}

	tests := []struct {
		name string
		pts  []mgl64.Vec3
		want mgl64.Vec3
	}{
		{
			name: "unit triangle",
			pts:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			want: mgl64.Vec3{0, 0, 1},
		},
		{
			name: "reversed triangle",
			pts:  []mgl64.Vec3{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}},
			want: mgl64.Vec3{0, 0, -1},
		},
		{
			name: "quad",
			pts:  []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 0, 2}, {0, 0, 2}},
			want: mgl64.Vec3{0, -1, 0},
		},
		{
			name: "counter clockwise pentagon",
			pts:  pentagon,
			want: mgl64.Vec3{0, 0, 1},
		},
		{
			name: "collinear",
			pts:  []mgl64.Vec3{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}},
			want: mgl64.Vec3{},
		},
		{
			name: "edge",
			pts:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}},
			want: mgl64.Vec3{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FaceNormal(tt.pts); !vecNear(got, tt.want) {
				t.Errorf("FaceNormal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCentroid(t *testing.T) {
	got := Centroid([]mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 4, 0}, {0, 4, 6}})
	if !vecNear(got, mgl64.Vec3{1, 2, 1.5}) {
		t.Errorf("Centroid() = %v", got)
	}
	if got := Centroid(nil); got != (mgl64.Vec3{}) {
		t.Errorf("Centroid(nil) = %v", got)
	}
}

func TestComputedNormals(t *testing.T) {
	c := NewComputedNormals(2, 3)
	c.Accumulate(mgl64.Vec3{0, 0, 1}, 0, 0)
	c.Accumulate(mgl64.Vec3{0, 1, 0}, 0, 2)
	c.Accumulate(mgl64.Vec3{1, 0, 0}, 1, 1)

	dst := make([]float32, 9)
	for i := range dst {
		dst[i] = -7
	}
	c.Finalize(dst)

	r := float32(math.Sqrt2 / 2)
	want := []float32{0, r, r, 1, 0, 0, 0, r, r}
	for i := range want {
		if math.Abs(float64(dst[i]-want[i])) > eps {
			t.Fatalf("Finalize() = %v, want %v", dst, want)
		}
	}
}

func TestComputedNormalsDegenerate(t *testing.T) {
	c := NewComputedNormals(3, 3)
	c.Accumulate(mgl64.Vec3{0, 0, 2}, 1, 0)
	c.Accumulate(mgl64.Vec3{}, 0, 1)

	dst := []float32{-7, -7, -7, -7, -7, -7, -7, -7, -7}
	c.Finalize(dst)

	want := []float32{
		0, 0, 1,    // normalized sum
		0, 0, 0,    // zero sum stays zero
		-7, -7, -7, // slot never recorded
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("Finalize() = %v, want %v", dst, want)
		}
	}
}
