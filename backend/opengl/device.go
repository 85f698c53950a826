//go:build cgo

package opengl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

// Name is the backend name.
const Name = "opengl"

// ErrNoContext is returned when no GL context is current.
var ErrNoContext = errors.New("opengl: no current GL context")

// Host is the window that owns the GL context.
type Host interface {
	FramebufferSize() (width, height int)
	SwapBuffers()
}

type texture struct {
	width, height int
}

// Device is a gpucore.Device on an OpenGL 4.1 core context. GL object
// names are used as resource IDs. All calls must happen on the thread
// that owns the context.
type Device struct {
	host         Host
	vao          uint32
	textures     map[gpucore.TextureID]texture
	framebuffers map[gpucore.FramebufferID]gpucore.TextureID
	buffers      map[gpucore.BufferID]uint32
	enabled      []uint32
	pass         *gpucore.PassState
}

var _ gpucore.Device = (*Device)(nil)

// New loads the GL entry points for the current context.
func New(host Host) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl: init: %w", err)
	}
	d := &Device{
		host:         host,
		textures:     make(map[gpucore.TextureID]texture),
		framebuffers: make(map[gpucore.FramebufferID]gpucore.TextureID),
		buffers:      make(map[gpucore.BufferID]uint32),
	}
	// Core profiles draw nothing without a bound vertex array object.
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	bloom.Logger().Info("opengl: device ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return d, nil
}

// Close deletes the vertex array object.
func (d *Device) Close() {
	gl.DeleteVertexArrays(1, &d.vao)
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return Name }

// SurfaceSize implements gpucore.Device.
func (d *Device) SurfaceSize() (int, int) {
	return d.host.FramebufferSize()
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("opengl: %s: %s", op, errorName(code))
	}
	return nil
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(usage gpucore.BufferUsage, data []byte) (gpucore.BufferID, error) {
	target := bufferTarget(usage)
	var name uint32
	gl.GenBuffers(1, &name)
	gl.BindBuffer(target, name)
	var ptr = gl.Ptr(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(target, len(data), ptr, gl.STATIC_DRAW)
	if err := checkError("buffer data"); err != nil {
		gl.DeleteBuffers(1, &name)
		return gpucore.InvalidID, err
	}
	id := gpucore.BufferID(name)
	d.buffers[id] = target
	return id, nil
}

// ReadBuffer implements gpucore.Device.
func (d *Device) ReadBuffer(id gpucore.BufferID, dst []byte) error {
	target, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("opengl: buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if len(dst) == 0 {
		return nil
	}
	gl.BindBuffer(target, uint32(id))
	gl.GetBufferSubData(target, 0, len(dst), gl.Ptr(dst))
	return checkError("read buffer")
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	if _, ok := d.buffers[id]; !ok {
		return
	}
	name := uint32(id)
	gl.DeleteBuffers(1, &name)
	delete(d.buffers, id)
}

// CompileShader implements gpucore.Device with the GLSL source.
func (d *Device) CompileShader(stage gpucore.Stage, src gpucore.ShaderSource) (gpucore.ShaderID, error) {
	if strings.TrimSpace(src.GLSL) == "" {
		return gpucore.InvalidID, fmt.Errorf("%s: no GLSL source", src.Name)
	}
	sh := gl.CreateShader(shaderType(stage))
	csrc, free := gl.Strs(src.GLSL + "\x00")
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &n)
		log := make([]byte, n+1)
		gl.GetShaderInfoLog(sh, n, nil, &log[0])
		gl.DeleteShader(sh)
		return gpucore.InvalidID, errors.New(trimLog(log))
	}
	return gpucore.ShaderID(sh), nil
}

// DestroyShader implements gpucore.Device.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	gl.DeleteShader(uint32(id))
}

// LinkProgram implements gpucore.Device.
func (d *Device) LinkProgram(vertex, fragment gpucore.ShaderID) (gpucore.ProgramID, error) {
	p := gl.CreateProgram()
	gl.AttachShader(p, uint32(vertex))
	gl.AttachShader(p, uint32(fragment))
	gl.LinkProgram(p)

	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(p, gl.INFO_LOG_LENGTH, &n)
		log := make([]byte, n+1)
		gl.GetProgramInfoLog(p, n, nil, &log[0])
		gl.DeleteProgram(p)
		return gpucore.InvalidID, errors.New(trimLog(log))
	}
	return gpucore.ProgramID(p), nil
}

// AttribLocation implements gpucore.Device. GL reports -1 for inactive
// attributes, which maps to an absent location.
func (d *Device) AttribLocation(p gpucore.ProgramID, name string) gpucore.Location {
	return gpucore.At(gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00")))
}

// UniformLocation implements gpucore.Device.
func (d *Device) UniformLocation(p gpucore.ProgramID, name string) gpucore.Location {
	return gpucore.At(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	gl.DeleteProgram(uint32(id))
}

// CreateRenderTarget implements gpucore.Device. The framebuffer has only
// a color attachment.
func (d *Device) CreateRenderTarget(width, height int) (gpucore.TextureID, gpucore.FramebufferID, error) {
	var tex, fb uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &fb)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fb)
		gl.DeleteTextures(1, &tex)
		return gpucore.InvalidID, gpucore.InvalidID, fmt.Errorf("opengl: framebuffer incomplete: 0x%x", status)
	}

	texID, fbID := gpucore.TextureID(tex), gpucore.FramebufferID(fb)
	d.textures[texID] = texture{width: width, height: height}
	d.framebuffers[fbID] = texID
	return texID, fbID, nil
}

// DestroyRenderTarget implements gpucore.Device.
func (d *Device) DestroyRenderTarget(tex gpucore.TextureID, fb gpucore.FramebufferID) {
	if _, ok := d.framebuffers[fb]; ok {
		name := uint32(fb)
		gl.DeleteFramebuffers(1, &name)
		delete(d.framebuffers, fb)
	}
	if _, ok := d.textures[tex]; ok {
		name := uint32(tex)
		gl.DeleteTextures(1, &name)
		delete(d.textures, tex)
	}
}

// TextureSize implements gpucore.Device.
func (d *Device) TextureSize(id gpucore.TextureID) (int, int) {
	t := d.textures[id]
	return t.width, t.height
}

func (d *Device) framebufferSize(fb gpucore.FramebufferID) (int, int, error) {
	if fb == gpucore.ScreenFramebuffer {
		w, h := d.SurfaceSize()
		return w, h, nil
	}
	tex, ok := d.framebuffers[fb]
	if !ok {
		return 0, 0, fmt.Errorf("opengl: framebuffer %d: %w", fb, gpucore.ErrUnknownResource)
	}
	t := d.textures[tex]
	return t.width, t.height, nil
}

// BeginPass implements gpucore.Device.
func (d *Device) BeginPass(state gpucore.PassState) error {
	w, h, err := d.framebufferSize(state.Framebuffer)
	if err != nil {
		return err
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(state.Framebuffer))
	gl.Viewport(0, 0, int32(w), int32(h))
	c := state.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.ClearDepth(float64(state.ClearDepth))
	if state.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(depthFunc(state.DepthFunc))
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	d.pass = &state
	return checkError("begin pass")
}

// Draw implements gpucore.Device.
func (d *Device) Draw(call *gpucore.DrawCall) error {
	if d.pass == nil {
		return gpucore.ErrNoPass
	}
	gl.UseProgram(uint32(call.Program))

	for _, loc := range d.enabled {
		gl.DisableVertexAttribArray(loc)
	}
	d.enabled = d.enabled[:0]
	for _, a := range call.Attributes {
		loc, ok := a.Location.Get()
		if !ok {
			continue
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, uint32(a.Buffer))
		gl.VertexAttribPointerWithOffset(uint32(loc), int32(a.Components), gl.FLOAT, false, 0, 0)
		gl.EnableVertexAttribArray(uint32(loc))
		d.enabled = append(d.enabled, uint32(loc))
	}

	for _, u := range call.Uniforms {
		if loc, ok := u.Location.Get(); ok {
			gl.UniformMatrix4fv(loc, 1, false, &u.Value[0])
		}
	}
	for _, s := range call.Samplers {
		loc, ok := s.Location.Get()
		if !ok {
			continue
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(s.Unit))
		gl.BindTexture(gl.TEXTURE_2D, uint32(s.Texture))
		gl.Uniform1i(loc, int32(s.Unit))
	}

	mode := primitiveMode(call.Topology)
	if call.Indexed() {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(call.IndexBuffer))
		gl.DrawElements(mode, int32(call.Count), gl.UNSIGNED_SHORT, gl.PtrOffset(0))
	} else {
		gl.DrawArrays(mode, 0, int32(call.Count))
	}
	return checkError("draw")
}

// EndPass implements gpucore.Device. GL orders passes on the context, so
// a later pass samples the finished texture.
func (d *Device) EndPass() error {
	if d.pass == nil {
		return gpucore.ErrNoPass
	}
	d.pass = nil
	return nil
}

// Present implements gpucore.Device.
func (d *Device) Present() error {
	d.host.SwapBuffers()
	return nil
}

// ReadPixels implements gpucore.Device.
func (d *Device) ReadPixels(fb gpucore.FramebufferID, dst []byte) error {
	w, h, err := d.framebufferSize(fb)
	if err != nil {
		return err
	}
	if len(dst) < w*h*4 {
		return fmt.Errorf("opengl: readback needs %d bytes, have %d", w*h*4, len(dst))
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
	return checkError("read pixels")
}
