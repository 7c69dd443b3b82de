// Package wireframe rasterizes a model's UV layout into a square image.
package wireframe

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/Faultbox/plyview/pkg/loop"
	"github.com/Faultbox/plyview/pkg/mesh"
)

// ErrNoUVs is returned with a placeholder image when the model carries no
// texture coordinates.
var ErrNoUVs = errors.New("no uv data available")

// Style picks which primitives are outlined.
type Style uint8

const (
	StyleFaces Style = iota
	StyleTriangles
	StyleVertices
)

func (s Style) String() string {
	switch s {
	case StyleTriangles:
		return "triangles"
	case StyleVertices:
		return "vertices"
	}
	return "faces"
}

// ParseStyle matches "tri" or "vert" anywhere in s. Anything else is faces.
func ParseStyle(s string) Style {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "tri"):
		return StyleTriangles
	case strings.Contains(s, "vert"):
		return StyleVertices
	}
	return StyleFaces
}

// Options configures a Renderer.
type Options struct {
	Size       int // square image edge in pixels
	LineColor  color.Color
	Background color.Color
	Budget     time.Duration
	Scheduler  loop.Scheduler
	Reporter   loop.Reporter
	Logger     *zap.Logger
}

// Renderer draws UV wireframes and keeps finished images per style until
// Reset.
type Renderer struct {
	opts Options

	mu     sync.Mutex
	cache  map[Style]*image.RGBA
	cancel context.CancelFunc
	seq    uint64
}

// NewRenderer creates a renderer, filling in defaults for zero options.
func NewRenderer(opts Options) *Renderer {
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	if opts.LineColor == nil {
		opts.LineColor = color.Black
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	if opts.Budget <= 0 {
		opts.Budget = loop.DefaultBudget
	}
	if opts.Reporter == nil {
		opts.Reporter = loop.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Renderer{opts: opts, cache: make(map[Style]*image.RGBA)}
}

// Size returns the image edge length in pixels.
func (r *Renderer) Size() int { return r.opts.Size }

// Reset drops every cached image. Call it when a new model is loaded.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[Style]*image.RGBA)
}

// Cancel stops an in-flight Render.
func (r *Renderer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Render draws attrs' UV layout in the given style. Starting a new render
// cancels the previous one. Only completed images are cached.
func (r *Renderer) Render(ctx context.Context, attrs *mesh.Attributes, style Style) (*image.RGBA, error) {
	if !attrs.Has.UVs {
		return r.noUVs(), ErrNoUVs
	}

	r.mu.Lock()
	if img, ok := r.cache[style]; ok {
		r.mu.Unlock()
		return img, nil
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.seq == seq {
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	st := r.newState(attrs)

	var (
		n    int
		step loop.StepFunc[*drawState]
	)
	switch style {
	case StyleTriangles:
		n = attrs.Counts.Attributes / 3
		step = drawTriangle
	case StyleVertices:
		n = attrs.Counts.Attributes
		step = drawVertex
	default:
		n = len(attrs.TrianglesPerFace)
		step = drawFace
	}

	r.opts.Reporter.SetTitle(fmt.Sprintf("Rendering %s wireframe", style))
	opts := loop.Options{
		Budget:    r.opts.Budget,
		Scheduler: r.opts.Scheduler,
		Progress:  r.opts.Reporter.Update,
	}
	if _, err := loop.Run(ctx, opts, n, st, step); err != nil {
		return nil, fmt.Errorf("rendering %s wireframe: %w", style, err)
	}

	img := r.blank()
	st.raster.Draw(img, img.Bounds(), image.NewUniform(r.opts.LineColor), image.Point{})

	r.mu.Lock()
	r.cache[style] = img
	r.mu.Unlock()

	r.opts.Logger.Info("rendered wireframe",
		zap.Stringer("style", style),
		zap.Int("primitives", n),
		zap.Duration("elapsed", time.Since(start)))
	return img, nil
}

// ModelScale shrinks strokes for dense models: min(max(1, faces/1000),
// log2(faces)-5), never below 1.
func ModelScale(faces int) float64 {
	if faces <= 0 {
		return 1
	}
	small := math.Max(1, float64(faces)/1000)
	large := math.Log2(float64(faces)) - 5
	return math.Max(1, math.Min(small, large))
}

type drawState struct {
	raster    *vector.Rasterizer
	size      float32
	lineWidth float32
	vertSize  float32
	uvs       []float32
	perFace   []uint32
	slot      int
	pts       [][2]float32
}

func (r *Renderer) newState(attrs *mesh.Attributes) *drawState {
	size := float32(r.opts.Size)
	scale := float32(ModelScale(attrs.Counts.Faces))
	return &drawState{
		raster:    vector.NewRasterizer(r.opts.Size, r.opts.Size),
		size:      size,
		lineWidth: size / 512 / scale,
		vertSize:  size / 128 / scale,
		uvs:       attrs.UVs.Vert,
		perFace:   attrs.TrianglesPerFace,
	}
}

// px maps uv slot i to image space, v pointing up.
func (s *drawState) px(i int) [2]float32 {
	u, v := s.uvs[2*i], s.uvs[2*i+1]
	return [2]float32{s.size * u, s.size * (1 - v)}
}

// segment adds a filled quad along a-b. Every quad winds the same way so
// overlaps never cancel under the nonzero rule.
func (s *drawState) segment(a, b [2]float32, width float32) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	hw := width / 2
	nx, ny := -dy/l*hw, dx/l*hw
	s.raster.MoveTo(a[0]+nx, a[1]+ny)
	s.raster.LineTo(b[0]+nx, b[1]+ny)
	s.raster.LineTo(b[0]-nx, b[1]-ny)
	s.raster.LineTo(a[0]-nx, a[1]-ny)
	s.raster.ClosePath()
}

func (s *drawState) polygon(pts [][2]float32) {
	for i := range pts {
		s.segment(pts[i], pts[(i+1)%len(pts)], s.lineWidth)
	}
}

// drawFace outlines one source face. Its fan triangles occupy 3*t slots;
// the outline corners are slots 0, 1, 2 then 3k-4 for k >= 3.
func drawFace(f int, s *drawState) error {
	t := int(s.perFace[f])
	if t == 0 {
		return nil
	}
	base := s.slot
	s.slot += 3 * t

	s.pts = s.pts[:0]
	for k := 0; k < t+2; k++ {
		c := k
		if k >= 3 {
			c = 3*k - 4
		}
		s.pts = append(s.pts, s.px(base+c))
	}
	s.polygon(s.pts)
	return nil
}

func drawTriangle(t int, s *drawState) error {
	s.pts = append(s.pts[:0], s.px(3*t), s.px(3*t+1), s.px(3*t+2))
	s.polygon(s.pts)
	return nil
}

// drawVertex fills a square centred on the slot's uv.
func drawVertex(i int, s *drawState) error {
	p := s.px(i)
	h := s.vertSize / 2
	s.segment([2]float32{p[0] - h, p[1]}, [2]float32{p[0] + h, p[1]}, s.vertSize)
	return nil
}

func (r *Renderer) blank() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.opts.Size, r.opts.Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)
	return img
}

// noUVs draws a two line notice scaled up to most of the image width.
func (r *Renderer) noUVs() *image.RGBA {
	img := r.blank()

	face := basicfont.Face7x13
	lines := []string{"no uv data", "available"}
	lineH := face.Metrics().Height.Ceil()
	textW := 0
	for _, l := range lines {
		if w := font.MeasureString(face, l).Ceil(); w > textW {
			textW = w
		}
	}

	src := image.NewRGBA(image.Rect(0, 0, textW, lineH*len(lines)))
	d := &font.Drawer{Dst: src, Src: image.NewUniform(r.opts.LineColor), Face: face}
	for i, l := range lines {
		w := font.MeasureString(face, l).Ceil()
		d.Dot = fixed.P((textW-w)/2, lineH*i+face.Metrics().Ascent.Ceil())
		d.DrawString(l)
	}

	maxW := r.opts.Size * 8 / 10
	scale := maxW / textW
	if scale < 1 {
		scale = 1
	}
	w, h := textW*scale, src.Bounds().Dy()*scale
	x0, y0 := (r.opts.Size-w)/2, (r.opts.Size-h)/2
	draw.NearestNeighbor.Scale(img, image.Rect(x0, y0, x0+w, y0+h), src, src.Bounds(), draw.Over, nil)
	return img
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}

// ParseHexColor reads "#rgb" or "#rrggbb".
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
