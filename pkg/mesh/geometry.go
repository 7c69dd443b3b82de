package mesh

import "github.com/go-gl/mathgl/mgl64"

// zeroLength is the squared length below which a vector has no direction.
const zeroLength = 1e-24

// normalize scales v to unit length. Degenerate input yields the zero vector.
func normalize(v mgl64.Vec3) mgl64.Vec3 {
	l2 := v.Dot(v)
	if l2 < zeroLength {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / v.Len())
}

// FanIndices returns triangle t of a polygon fanned from its first corner:
// list[0], list[1+t], list[2+t].
func FanIndices(list []int, t int) [3]int {
	return [3]int{list[0], list[1+t], list[2+t]}
}

// TriangleNormal is the unit normal of triangle abc, following its winding.
func TriangleNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	return normalize(b.Sub(a).Cross(c.Sub(a)))
}

// QuadNormal uses the cross product of the diagonals ac and bd. Non-planar
// quads get the same treatment.
func QuadNormal(a, b, c, d mgl64.Vec3) mgl64.Vec3 {
	return normalize(c.Sub(a).Cross(d.Sub(b)))
}

// NewellNormal computes a polygon normal with Newell's method.
func NewellNormal(pts []mgl64.Vec3) mgl64.Vec3 {
	var n mgl64.Vec3
	for i, cur := range pts {
		next := pts[(i+1)%len(pts)]
		n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
		n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
		n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	return normalize(n)
}

// FaceNormal picks the triangle, quad or Newell rule by corner count.
func FaceNormal(pts []mgl64.Vec3) mgl64.Vec3 {
	switch len(pts) {
	case 0, 1, 2:
		return mgl64.Vec3{}
	case 3:
		return TriangleNormal(pts[0], pts[1], pts[2])
	case 4:
		return QuadNormal(pts[0], pts[1], pts[2], pts[3])
	default:
		return NewellNormal(pts)
	}
}

// Centroid is the arithmetic mean of pts.
func Centroid(pts []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	if len(pts) == 0 {
		return sum
	}
	return sum.Mul(1 / float64(len(pts)))
}

func centroid2(pts []mgl64.Vec2) mgl64.Vec2 {
	var sum mgl64.Vec2
	for _, p := range pts {
		sum = sum.Add(p)
	}
	if len(pts) == 0 {
		return sum
	}
	return sum.Mul(1 / float64(len(pts)))
}

func mean3(a, b, c mgl64.Vec3) mgl64.Vec3 {
	return a.Add(b).Add(c).Mul(1.0 / 3)
}

func mean2(a, b, c mgl64.Vec2) mgl64.Vec2 {
	return a.Add(b).Add(c).Mul(1.0 / 3)
}
