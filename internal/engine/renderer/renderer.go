// Package renderer draws generated model attributes with OpenGL.
package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/plyview/internal/engine/shader"
	"github.com/Faultbox/plyview/internal/engine/texture"
	"github.com/Faultbox/plyview/internal/logger"
	"github.com/Faultbox/plyview/pkg/mesh"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	Background [3]float32
	MatcapSize int
}

// Renderer owns the GPU copies of one model's attributes.
// IMPORTANT: every method must run on the thread holding the GL context.
type Renderer struct {
	config Config

	orbit *shader.Program
	uv    *shader.Program

	orbitVAO, uvVAO                    uint32
	xyzVBO, normalVBO, colorVBO, uvVBO uint32
	matcapTex                          uint32

	count       int32
	mode        mesh.ColorMode
	colorScale  float32
	colorOffset [3]float32
}

// New creates a renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{config: cfg}
	if r.config.MatcapSize <= 0 {
		r.config.MatcapSize = 256
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	// Global GL state
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	bg := cfg.Background
	gl.ClearColor(bg[0], bg[1], bg[2], 1.0)

	// Programs share one fragment shader
	var err error
	if r.orbit, err = shader.Compile(shader.OrbitVertex, shader.Fragment); err != nil {
		return nil, fmt.Errorf("orbit program: %w", err)
	}
	if r.uv, err = shader.Compile(shader.UVVertex, shader.Fragment); err != nil {
		r.orbit.Delete()
		return nil, fmt.Errorf("uv program: %w", err)
	}

	// Buffers are filled by SetAttributes
	gl.GenBuffers(1, &r.xyzVBO)
	gl.GenBuffers(1, &r.normalVBO)
	gl.GenBuffers(1, &r.colorVBO)
	gl.GenBuffers(1, &r.uvVBO)
	gl.GenVertexArrays(1, &r.orbitVAO)
	gl.GenVertexArrays(1, &r.uvVAO)

	r.matcapTex = uploadTexture(texture.Matcap(r.config.MatcapSize, texture.OrangeClay))

	logger.Debug("renderer created",
		zap.Uint32("orbit_program", r.orbit.ID),
		zap.Uint32("uv_program", r.uv.ID),
	)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	vaos := []uint32{r.orbitVAO, r.uvVAO}
	gl.DeleteVertexArrays(int32(len(vaos)), &vaos[0])
	vbos := []uint32{r.xyzVBO, r.normalVBO, r.colorVBO, r.uvVBO}
	gl.DeleteBuffers(int32(len(vbos)), &vbos[0])
	gl.DeleteTextures(1, &r.matcapTex)
	r.orbit.Delete()
	r.uv.Delete()
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Aspect returns width over height of the viewport.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// SetAttributes uploads a model's buffers for the requested color and shade
// and returns the color mode actually used.
func (r *Renderer) SetAttributes(attrs *mesh.Attributes, mode mesh.ColorMode, shade mesh.Shade) mesh.ColorMode {
	colors, used := attrs.Select(mode, shade)
	normals := attrs.Normals.Get(shade)
	components := mesh.Components(used)

	// Upload buffers
	upload(r.xyzVBO, attrs.XYZ.Vert)
	upload(r.normalVBO, normals)
	upload(r.colorVBO, colors)
	upload(r.uvVBO, attrs.UVs.Vert)

	// Orbit view: position, normal, color
	gl.BindVertexArray(r.orbitVAO)
	bindAttribute(r.xyzVBO, shader.LocPosition, 3)
	bindAttribute(r.normalVBO, shader.LocNormal, 3)
	bindAttribute(r.colorVBO, shader.LocColor, components)

	// UV view: uv as position, same color
	gl.BindVertexArray(r.uvVAO)
	bindAttribute(r.uvVBO, shader.LocPosition, 2)
	bindAttribute(r.colorVBO, shader.LocColor, components)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.count = int32(attrs.Counts.Attributes)
	r.mode = used
	r.colorScale, r.colorOffset = attrs.ColorTransform(used)

	if used != mode {
		logger.Warn("color mode unavailable, using fallback",
			zap.Stringer("requested", mode),
			zap.Stringer("used", used),
		)
	}
	logger.Debug("attributes uploaded",
		zap.Int32("vertices", r.count),
		zap.Stringer("color", used),
		zap.Stringer("shade", shade),
	)
	return used
}

// Clear drops the current model.
func (r *Renderer) Clear() {
	r.count = 0
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// DrawOrbit draws the model through the camera matrices.
func (r *Renderer) DrawOrbit(view, projection mgl32.Mat4) {
	if r.count == 0 {
		return
	}
	p := r.orbit
	p.Use()
	gl.UniformMatrix4fv(p.Uniform("u_view"), 1, false, &view[0])
	gl.UniformMatrix4fv(p.Uniform("u_projection"), 1, false, &projection[0])
	r.draw(p, r.orbitVAO)
}

// DrawUV draws the model flattened onto its texture coordinates.
func (r *Renderer) DrawUV() {
	if r.count == 0 {
		return
	}
	r.uv.Use()
	r.draw(r.uv, r.uvVAO)
}

func (r *Renderer) draw(p *shader.Program, vao uint32) {
	gl.Uniform1f(p.Uniform("u_color_scale"), r.colorScale)
	gl.Uniform3f(p.Uniform("u_color_offset"), r.colorOffset[0], r.colorOffset[1], r.colorOffset[2])
	gl.Uniform1i(p.Uniform("u_mode"), int32(r.mode))

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.matcapTex)
	gl.Uniform1i(p.Uniform("u_matcap"), 0)

	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLES, 0, r.count)
	gl.BindVertexArray(0)
}

// ReadPixels returns the current framebuffer as an image, top row first.
func (r *Renderer) ReadPixels() *image.RGBA {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rowSize := w * 4
	for y := 0; y < h; y++ {
		src := (h - 1 - y) * rowSize
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], pixels[src:src+rowSize])
	}
	return img
}

func upload(vbo uint32, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(data) == 0 {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

func bindAttribute(vbo uint32, loc uint32, components int32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.VertexAttribPointerWithOffset(loc, components, gl.FLOAT, false, 0, 0)
	gl.EnableVertexAttribArray(loc)
}

func uploadTexture(img *image.RGBA) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	b := img.Bounds()
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}
