// Package texture builds images uploaded as GPU textures.
package texture

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MatcapPalette names the tones of a material capture sphere.
type MatcapPalette struct {
	Bright, Dark, Shadow, Highlight color.RGBA
}

// OrangeClay is the default matcap palette.
var OrangeClay = MatcapPalette{
	Bright:    color.RGBA{255, 105, 55, 255},
	Dark:      color.RGBA{160, 45, 5, 255},
	Shadow:    color.RGBA{80, 55, 95, 255},
	Highlight: color.RGBA{255, 220, 175, 255},
}

// gradient is a radial gradient between two concentric circles. Positions
// and radii are relative to half the image size, y pointing up.
type gradient struct {
	x, y   float64
	r0, r1 float64
	from   mgl64.Vec4 // straight rgba in [0, 1]
	to     mgl64.Vec4
}

func rgba(c color.RGBA, a float64) mgl64.Vec4 {
	return mgl64.Vec4{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, a}
}

// Matcap renders a lit sphere of the given size. Faces are shaded by
// sampling it at their view space normal.
func Matcap(size int, p MatcapPalette) *image.RGBA {
	black := color.RGBA{A: 255}
	layers := []gradient{
		// Soft fill
		{y: 0.25, r0: 0, r1: 1.5, from: rgba(p.Bright, 1), to: rgba(p.Dark, 1)},
		// Top highlight
		{y: 0.5, r0: 0.15, r1: 1.25, from: rgba(p.Highlight, 0.6), to: rgba(p.Bright, 0)},
		// Lower shadow
		{y: 0.6, r0: 0.8, r1: 1.5, from: rgba(p.Bright, 0), to: rgba(p.Shadow, 1)},
		// Circular cutout
		{r0: 1.005, r1: 1.005 * 1.01, from: rgba(black, 0), to: rgba(p.Shadow, 1)},
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	half := float64(size) / 2
	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			// Premultiplied accumulator.
			var acc mgl64.Vec4
			cx, cy := float64(px)+0.5, float64(py)+0.5
			for _, g := range layers {
				gx := (g.x + 1) * half
				gy := (1 - g.y) * half
				d := math.Hypot(cx-gx, cy-gy) / half
				src := g.at(d)
				acc = over(premultiply(src), acc)
			}
			img.SetRGBA(px, py, toRGBA(acc))
		}
	}
	return img
}

// at interpolates in premultiplied space, padding beyond either circle.
func (g gradient) at(d float64) mgl64.Vec4 {
	t := 0.0
	if g.r1 != g.r0 {
		t = mgl64.Clamp((d-g.r0)/(g.r1-g.r0), 0, 1)
	}
	a := premultiply(g.from)
	b := premultiply(g.to)
	c := a.Mul(1 - t).Add(b.Mul(t))
	if c[3] == 0 {
		return mgl64.Vec4{}
	}
	return mgl64.Vec4{c[0] / c[3], c[1] / c[3], c[2] / c[3], c[3]}
}

func premultiply(c mgl64.Vec4) mgl64.Vec4 {
	return mgl64.Vec4{c[0] * c[3], c[1] * c[3], c[2] * c[3], c[3]}
}

// over composites premultiplied src onto premultiplied dst.
func over(src, dst mgl64.Vec4) mgl64.Vec4 {
	return src.Add(dst.Mul(1 - src[3]))
}

func toRGBA(c mgl64.Vec4) color.RGBA {
	q := func(v float64) uint8 {
		return uint8(math.Round(mgl64.Clamp(v, 0, 1) * 255))
	}
	return color.RGBA{q(c[0]), q(c[1]), q(c[2]), q(c[3])}
}
