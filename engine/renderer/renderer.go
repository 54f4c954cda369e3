package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUBackend is a Backend that executes every frame on a WebGPU device. It keeps the recording
// backend's bookkeeping, so handles, encoders, transient budgets and the frame record behave the
// same; Frame then replays the record as one render pass per view in view id order.
type WGPUBackend interface {
	RecordingBackend

	// Device returns the WebGPU device.
	Device() *wgpu.Device

	// Queue returns the queue of the device.
	Queue() *wgpu.Queue

	// SetPresentMode sets the surface present mode and reconfigures the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync, Uncapped or TripleBuffered)
	SetPresentMode(mode PresentMode)

	// SampleCount returns the multisample count of the back buffer.
	SampleCount() MSAASampleCount
}

// wgpuBackendImpl is the implementation of WGPUBackend.
type wgpuBackendImpl struct {
	*recordingBackendImpl

	gpuMu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat    wgpu.TextureFormat
	surfaceWidth     uint32
	surfaceHeight    uint32
	msaaTexture      *wgpu.Texture
	msaaTextureView  *wgpu.TextureView
	depthTexture     *wgpu.Texture
	depthTextureView *wgpu.TextureView

	// Pre-creation config collected from builder options
	presentMode          PresentMode
	sampleCount          MSAASampleCount
	forceFallbackAdapter bool
	recordingOptions     []RecordingBackendOption

	buffers      map[Handle]*wgpuBuffer
	textures     map[Handle]*wgpuTexture
	frameBuffers map[Handle][]Handle
	shaders      map[Handle]*wgpuShader
	programs     map[Handle]*wgpuProgram
	uniformNames map[Handle]string

	// textureGroups caches bind groups by program, group and bound textures. It is dropped
	// whenever a texture goes away.
	textureGroups map[string]bind_group_provider.BindGroupProvider
	defaults      wgpuDefaults

	transientVertices    *wgpu.Buffer
	transientVertexBytes uint64
	transientIndices     *wgpu.Buffer
	transientIndexBytes  uint64
}

var _ WGPUBackend = &wgpuBackendImpl{}

// NewWGPUBackend creates a WebGPU device for a surface and configures the surface. Defaults: 4x
// MSAA, uncapped presentation, 8 encoders and the recording backend's transient budget.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, see window.Window.SurfaceDescriptor
//   - width: the initial back buffer width in pixels
//   - height: the initial back buffer height in pixels
//   - options: functional options to configure the backend
//
// Returns:
//   - WGPUBackend: the backend
//   - error: an error if no adapter or device is available or the defaults could not be created
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...WGPUBackendOption) (WGPUBackend, error) {
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("renderer: no surface to render to")
	}
	runtime.LockOSThread()

	b := &wgpuBackendImpl{
		gpuMu:         &sync.Mutex{},
		presentMode:   PresentModeUncapped,
		sampleCount:   MSAA4x,
		buffers:       map[Handle]*wgpuBuffer{},
		textures:      map[Handle]*wgpuTexture{},
		frameBuffers:  map[Handle][]Handle{},
		shaders:       map[Handle]*wgpuShader{},
		programs:      map[Handle]*wgpuProgram{},
		uniformNames:  map[Handle]string{},
		textureGroups: map[string]bind_group_provider.BindGroupProvider{},
	}
	for _, option := range options {
		option(b)
	}
	recordingOptions := append([]RecordingBackendOption{WithBackBufferSize(width, height)}, b.recordingOptions...)
	b.recordingBackendImpl = NewRecordingBackend(recordingOptions...).(*recordingBackendImpl)

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.releaseInstance()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	b.adapter = a

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.releaseInstance()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.createDefaults(); err != nil {
		b.Shutdown()
		return nil, err
	}
	if err := b.configureSurface(width, height); err != nil {
		b.Shutdown()
		return nil, err
	}
	logger.Infof("WebGPU backend ready: %dx%d, %dx MSAA, surface format %v.", width, height, b.sampleCount, b.surfaceFormat)
	return b, nil
}

// configureSurface is a wrapper for boilerplate logic required when calling Configure on a
// surface, and recreates the back buffer's MSAA and depth textures. Caller must hold gpuMu or
// be the constructor.
func (b *wgpuBackendImpl) configureSurface(width, height int) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return fmt.Errorf("renderer: surface reports no formats")
	}
	// Shaders write display ready color, so a non sRGB format is preferred.
	b.surfaceFormat = capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			b.surfaceFormat = f
			break
		}
	}
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode.wgpu(),
		AlphaMode:   alphaMode,
	})
	b.surfaceWidth = uint32(width)
	b.surfaceHeight = uint32(height)

	b.releaseSurfaceTargets()
	count := uint32(b.sampleCount)
	size := wgpu.Extent3D{
		Width:              uint32(width),
		Height:             uint32(height),
		DepthOrArrayLayers: 1,
	}

	if count > 1 {
		// The passes draw into the MSAA texture; the swapchain view is the resolve target.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("renderer: create MSAA texture: %w", err)
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			return fmt.Errorf("renderer: create MSAA view: %w", err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("renderer: create depth texture: %w", err)
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("renderer: create depth view: %w", err)
	}
	return nil
}

func (b *wgpuBackendImpl) releaseSurfaceTargets() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuBackendImpl) releaseInstance() {
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *wgpuBackendImpl) Resize(width, height int) error {
	if err := b.recordingBackendImpl.Resize(width, height); err != nil {
		return err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	return b.configureSurface(width, height)
}

func (b *wgpuBackendImpl) SetPresentMode(mode PresentMode) {
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.presentMode = mode
	if err := b.configureSurface(int(b.surfaceWidth), int(b.surfaceHeight)); err != nil {
		logger.Errorf("Reconfiguring the surface for present mode %d failed: %v", mode, err)
	}
}

func (b *wgpuBackendImpl) SampleCount() MSAASampleCount {
	return b.sampleCount
}

func (b *wgpuBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuBackendImpl) Shutdown() {
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()

	b.dropTextureGroups()
	for h, p := range b.programs {
		p.release()
		delete(b.programs, h)
	}
	for h, s := range b.shaders {
		s.module.Release()
		delete(b.shaders, h)
	}
	for h, t := range b.textures {
		t.release()
		delete(b.textures, h)
	}
	for h, buf := range b.buffers {
		buf.buffer.Release()
		delete(b.buffers, h)
	}
	clear(b.frameBuffers)
	clear(b.uniformNames)
	if b.transientVertices != nil {
		b.transientVertices.Release()
		b.transientVertices = nil
	}
	if b.transientIndices != nil {
		b.transientIndices.Release()
		b.transientIndices = nil
	}
	b.defaults.release()
	b.releaseSurfaceTargets()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	b.releaseInstance()
	b.recordingBackendImpl.Shutdown()
}
