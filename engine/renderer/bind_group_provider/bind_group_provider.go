package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	group int

	// layoutEntries describe what each binding of the group holds; the bind group is built in
	// their order.
	layoutEntries   []wgpu.BindGroupLayoutEntry
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	// buffers are owned by the provider and released with it. Texture views and samplers belong
	// to their textures and are only referenced.
	buffers      map[int]*wgpu.Buffer
	bufferSizes  map[int]uint64
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler
}

// BindGroupProvider holds the resources of one bind group of a program: the layout they follow,
// the buffers, texture views and samplers per binding and the bind group built from them.
//
// Usage pattern:
//  1. The backend creates a provider from a reflected layout descriptor and its GPU layout
//  2. It sets a resource for every binding of the layout
//  3. Build creates the bind group, Entries reports bindings left without a resource
//  4. Draws bind BindGroup() at Group()
type BindGroupProvider interface {
	// Release releases the bind group and the buffers owned by the provider.
	Release()

	// Label returns the debug label for this provider.
	Label() string

	// Group returns the group index the provider binds at.
	Group() int

	// BindGroup returns the created bind group, or nil before Build.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the GPU layout the bind group is built against.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at binding, or nil.
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view bound at binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler bound at binding, or nil.
	Sampler(binding int) *wgpu.Sampler

	// SetBuffer sets the buffer of a binding. The provider takes ownership.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	//   - size: the bound range in bytes, wgpu.WholeSize for the whole buffer
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetTextureView sets the texture view of a binding.
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler sets the sampler of a binding.
	SetSampler(binding int, s *wgpu.Sampler)

	// Entries returns the bind group entries in layout order.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: the entries
	//   - error: an error naming the first binding that has no resource
	Entries() ([]wgpu.BindGroupEntry, error)

	// Build creates the bind group from the current resources, replacing the previous one.
	//
	// Parameters:
	//   - device: the device to create the bind group on
	//
	// Returns:
	//   - error: an error if a binding has no resource or creation failed
	Build(device *wgpu.Device) error
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label used for the GPU objects
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		bufferSizes:  make(map[int]uint64),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() int {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.bufferSizes[binding] = size
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Entries() ([]wgpu.BindGroupEntry, error) {
	entries := make([]wgpu.BindGroupEntry, len(p.layoutEntries))
	for i, entry := range p.layoutEntries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture:
			tv := p.textureViews[binding]
			if tv == nil {
				return nil, fmt.Errorf("bind_group_provider: %s binding %d has no texture view", p.label, binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv}
		case isSampler:
			s := p.samplers[binding]
			if s == nil {
				return nil, fmt.Errorf("bind_group_provider: %s binding %d has no sampler", p.label, binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: s}
		default:
			buf := p.buffers[binding]
			if buf == nil {
				return nil, fmt.Errorf("bind_group_provider: %s binding %d has no buffer", p.label, binding)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    p.bufferSizes[binding],
			}
		}
	}
	return entries, nil
}

func (p *bindGroupProvider) Build(device *wgpu.Device) error {
	if p.bindGroupLayout == nil {
		return fmt.Errorf("bind_group_provider: %s has no layout", p.label)
	}
	entries, err := p.Entries()
	if err != nil {
		return err
	}
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label + " Bind Group",
		Layout:  p.bindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("bind_group_provider: create %s: %w", p.label, err)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bindGroup
	return nil
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	clear(p.textureViews)
	clear(p.samplers)

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}
