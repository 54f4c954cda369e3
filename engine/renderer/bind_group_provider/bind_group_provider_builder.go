package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLayout sets the group index, the layout descriptor and the GPU layout created from it.
//
// Parameters:
//   - group: the group index the bind group is set at
//   - desc: the layout descriptor, its entries decide the resource kind of every binding
//   - layout: the GPU layout created from desc; the provider does not own it
//
// Returns:
//   - BindGroupProviderOption: a function that sets the layout for this provider
func WithLayout(group int, desc wgpu.BindGroupLayoutDescriptor, layout *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.group = group
		p.layoutEntries = desc.Entries
		p.bindGroupLayout = layout
	}
}

// WithBuffer sets a buffer for a specific binding index. The provider takes ownership.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//   - size: the bound range in bytes
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
		p.bufferSizes[binding] = size
	}
}
