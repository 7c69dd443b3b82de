// Package camera provides the orbit camera used by the model viewer.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCamera orbits a target point. Its position is kept as a unit
// direction from the target plus a distance.
type OrbitCamera struct {
	Target mgl32.Vec3

	Distance    float32
	MinDistance float32
	MaxDistance float32

	FOVDegrees float32

	// Sensitivity
	DragSensitivity float32
	ZoomFactor      float32

	defaultDistance float32
	orientation     string

	worldUp, worldRight mgl32.Vec3
	dir, up, right      mgl32.Vec3
}

// NewOrbitCamera creates a camera looking at the origin with world up along
// +Z and right along +X.
func NewOrbitCamera(fovDegrees float32) *OrbitCamera {
	c := &OrbitCamera{
		Distance:        5,
		MinDistance:     2,
		MaxDistance:     20,
		FOVDegrees:      fovDegrees,
		DragSensitivity: 0.005,
		ZoomFactor:      0.95,
		defaultDistance: 5,
	}
	c.SetOrientation("zx")
	return c
}

// Reset restores the default distance and re-aligns to the world axes.
func (c *OrbitCamera) Reset() {
	c.Distance = c.defaultDistance
	c.alignToWorld()
}

// SetBounds frames an object of the given extent centred on mids.
func (c *OrbitCamera) SetBounds(maxDelta float32, mids mgl32.Vec3) {
	if maxDelta <= 0 {
		maxDelta = 1
	}
	c.defaultDistance = 2.5 * maxDelta
	c.MinDistance = 0.5 * maxDelta
	c.MaxDistance = 20 * maxDelta
	c.Target = mids
	c.Reset()
}

// SetOrientation sets the world up and right axes from a two letter string
// such as "zx" (up z, right x). It reports whether anything changed.
// Unknown or repeated axes are ignored.
func (c *OrbitCamera) SetOrientation(upRight string) bool {
	if upRight == c.orientation || len(upRight) != 2 {
		return false
	}
	up, okUp := axis(upRight[0])
	right, okRight := axis(upRight[1])
	if !okUp || !okRight || up == right {
		return false
	}
	c.orientation = upRight
	c.worldUp = up
	c.worldRight = right
	c.alignToWorld()
	return true
}

// Orientation returns the current up/right string.
func (c *OrbitCamera) Orientation() string { return c.orientation }

func axis(b byte) (mgl32.Vec3, bool) {
	switch b {
	case 'x', 'X':
		return mgl32.Vec3{1, 0, 0}, true
	case 'y', 'Y':
		return mgl32.Vec3{0, 1, 0}, true
	case 'z', 'Z':
		return mgl32.Vec3{0, 0, 1}, true
	}
	return mgl32.Vec3{}, false
}

func (c *OrbitCamera) alignToWorld() {
	c.up = c.worldUp
	c.right = c.worldRight
	// Camera sits behind the world forward axis looking back at the target.
	c.dir = c.worldUp.Cross(c.worldRight).Mul(-1)
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	return c.Target.Add(c.dir.Mul(c.Distance))
}

// Orbit rotates the camera around the target by a pointer drag. It reports
// whether the camera moved.
func (c *OrbitCamera) Orbit(deltaX, deltaY float32) bool {
	if deltaX == 0 && deltaY == 0 {
		return false
	}

	mag := float32(math.Hypot(float64(deltaX), float64(deltaY)))
	angle := mag * c.DragSensitivity
	rotAxis := normalize(c.right.Mul(deltaY).Add(c.up.Mul(deltaX)).Mul(-1))
	if rotAxis == (mgl32.Vec3{}) {
		return false
	}

	c.dir = normalize(mgl32.QuatRotate(angle, rotAxis).Rotate(c.dir))
	c.updateAxes()
	return true
}

// updateAxes rebuilds right and up from the new direction, keeping right
// perpendicular to the world up axis.
func (c *OrbitCamera) updateAxes() {
	flatten := mgl32.Vec3{1, 1, 1}.Sub(c.worldUp)

	right := normalize(c.up.Cross(c.dir))
	right = normalize(mgl32.Vec3{right[0] * flatten[0], right[1] * flatten[1], right[2] * flatten[2]})
	if right == (mgl32.Vec3{}) {
		return
	}
	c.right = right
	c.up = normalize(c.dir.Cross(right))
}

// Zoom moves the camera closer for positive delta (wheel up) and further
// for negative delta, within the distance limits.
func (c *OrbitCamera) Zoom(delta float32) bool {
	if delta == 0 {
		return false
	}
	if delta > 0 {
		c.Distance *= c.ZoomFactor
	} else {
		c.Distance /= c.ZoomFactor
	}
	c.Distance = max(c.Distance, c.MinDistance)
	c.Distance = min(c.Distance, c.MaxDistance)
	return true
}

// View returns the world to view matrix.
func (c *OrbitCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, c.up)
}

// Projection returns the view to clip matrix. Orthographic framing matches
// the perspective view height at the current distance.
func (c *OrbitCamera) Projection(aspect float32, ortho bool) mgl32.Mat4 {
	far := c.MaxDistance * 2
	if ortho {
		h := c.Distance * float32(math.Tan(float64(mgl32.DegToRad(c.FOVDegrees))/2))
		w := h * aspect
		return mgl32.Ortho(-w, w, -h, h, -far, far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOVDegrees), aspect, c.MinDistance*0.25, far)
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}
