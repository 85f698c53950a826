//go:build !nogpu && !cgo

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Name is the backend name.
const Name = "native"

// Device errors.
var (
	// ErrNoAdapter is returned when the HAL backend exposes no adapter.
	ErrNoAdapter = errors.New("native: no GPU adapter")

	// ErrProvider is returned when a device provider does not expose HAL
	// device and queue handles.
	ErrProvider = errors.New("native: provider does not expose HAL types")
)

const (
	colorFormat = gputypes.TextureFormatRGBA8Unorm
	depthFormat = gputypes.TextureFormatDepth24Plus

	// uniformSize holds the projection and model-view matrices.
	uniformSize = 2 * 64
)

// Device is a gpucore.Device on the gogpu/wgpu HAL.
//
// The visible surface is an owned offscreen texture, so the device runs
// headless. Present counts frames; ReadPixels copies the surface back.
// Each pass is submitted and waited on when it ends, which gives the
// pass ordering gpucore.Device requires.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	external bool

	nextID uint64

	buffers      map[gpucore.BufferID]*buffer
	shaders      map[gpucore.ShaderID]*shaderModule
	programs     map[gpucore.ProgramID]*program
	targets      map[gpucore.TextureID]*target
	framebuffers map[gpucore.FramebufferID]*target

	screen      *target
	screenDepth *target

	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	dummy      *target
	defaults   hal.Buffer

	pass     *pass
	presents int
}

var _ gpucore.Device = (*Device)(nil)

// New opens a standalone Vulkan device with a width x height surface.
func New(width, height int) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("native: vulkan backend not available: %w", gpucore.ErrNoDevice)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	d, err := openInstance(instance, width, height)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return d, nil
}

func openInstance(instance hal.Instance, width, height int) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("native: open device: %w", err)
	}
	d, err := newDevice(open.Device, open.Queue, width, height)
	if err != nil {
		open.Device.Destroy()
		return nil, err
	}
	d.instance = instance
	bloom.Logger().Info("native: device ready", "adapter", selected.Info.Name)
	return d, nil
}

// NewFromProvider renders on a device shared by a host application. The
// provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. Close leaves the shared device open.
func NewFromProvider(provider gpucontext.DeviceProvider, width, height int) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}

	d, err := newDevice(device, queue, width, height)
	if err != nil {
		return nil, err
	}
	d.external = true
	info := provider.AdapterInfo()
	bloom.Logger().Info("native: using shared device", "adapter", info.Name, "type", info.Type.String())
	return d, nil
}

func newDevice(device hal.Device, queue hal.Queue, width, height int) (*Device, error) {
	d := &Device{
		device:       device,
		queue:        queue,
		buffers:      make(map[gpucore.BufferID]*buffer),
		shaders:      make(map[gpucore.ShaderID]*shaderModule),
		programs:     make(map[gpucore.ProgramID]*program),
		targets:      make(map[gpucore.TextureID]*target),
		framebuffers: make(map[gpucore.FramebufferID]*target),
	}
	if err := d.init(width, height); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// init creates the objects every draw shares.
func (d *Device) init(width, height int) error {
	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "bloom_layout",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("native: create bind group layout: %w", err)
	}
	d.layout = layout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "bloom_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.layout},
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "bloom_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return fmt.Errorf("native: create sampler: %w", err)
	}
	d.sampler = sampler

	if d.dummy, err = d.newTarget("bloom_dummy", 1, 1, colorFormat); err != nil {
		return err
	}
	// Attributes a draw does not bind read this constant (0, 0, 0, 1).
	if d.defaults, err = d.uploadBuffer("bloom_default_attrib", float32Bytes(0, 0, 0, 1), gputypes.BufferUsageVertex); err != nil {
		return err
	}
	return d.Resize(width, height)
}

// Resize reallocates the visible surface.
func (d *Device) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("native: invalid surface size %dx%d", width, height)
	}
	color, err := d.newTarget("bloom_screen", width, height, colorFormat)
	if err != nil {
		return err
	}
	depth, err := d.newTarget("bloom_screen_depth", width, height, depthFormat)
	if err != nil {
		d.destroyTarget(color)
		return err
	}
	d.destroyTarget(d.screen)
	d.destroyTarget(d.screenDepth)
	d.screen, d.screenDepth = color, depth
	return nil
}

// Close releases every resource the device created.
func (d *Device) Close() {
	if d.device == nil {
		return
	}
	for id := range d.programs {
		d.DestroyProgram(id)
	}
	for id := range d.shaders {
		d.DestroyShader(id)
	}
	for id := range d.buffers {
		d.DestroyBuffer(id)
	}
	for tex, t := range d.targets {
		d.destroyTarget(t)
		delete(d.targets, tex)
	}
	clear(d.framebuffers)
	d.destroyTarget(d.screen)
	d.destroyTarget(d.screenDepth)
	d.destroyTarget(d.dummy)
	d.screen, d.screenDepth, d.dummy = nil, nil, nil
	if d.defaults != nil {
		d.device.DestroyBuffer(d.defaults)
		d.defaults = nil
	}
	if d.sampler != nil {
		d.device.DestroySampler(d.sampler)
		d.sampler = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.layout != nil {
		d.device.DestroyBindGroupLayout(d.layout)
		d.layout = nil
	}

	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device, d.queue, d.instance = nil, nil, nil
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return Name }

// SurfaceSize implements gpucore.Device.
func (d *Device) SurfaceSize() (int, int) {
	return d.screen.width, d.screen.height
}

// Presents returns the number of presented frames.
func (d *Device) Presents() int { return d.presents }

// Present implements gpucore.Device. The surface is offscreen, so a
// present only marks the frame complete.
func (d *Device) Present() error {
	d.presents++
	bloom.Logger().Debug("native: present", "frame", d.presents)
	return nil
}

// submit encodes with record, submits and waits for the queue to drain.
func (d *Device) submit(label string, record func(enc hal.CommandEncoder)) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("native: submit %s: %w", label, err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait %s: %w", label, err)
	}
	return nil
}
