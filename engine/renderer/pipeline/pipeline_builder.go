package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option for configuring a Pipeline.
// Use the With* functions to create options that are applied directly to the pipeline instance.
type PipelineBuilderOption func(*pipeline)

// WithVertexStage sets the vertex module, its entry point and the vertex buffer layouts it reads.
//
// Parameters:
//   - module: the compiled shader module
//   - entry: the @vertex function name
//   - buffers: one layout per vertex stream
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithVertexStage(module *wgpu.ShaderModule, entry string, buffers ...wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexModule = module
		p.vertexEntry = entry
		p.vertexBuffers = buffers
	}
}

// WithFragmentStage sets the fragment module and its entry point.
//
// Parameters:
//   - module: the compiled shader module
//   - entry: the @fragment function name
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithFragmentStage(module *wgpu.ShaderModule, entry string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentModule = module
		p.fragmentEntry = entry
	}
}

// WithColorTargets sets the formats of the color attachments, in attachment order.
func WithColorTargets(formats ...wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormats = formats
	}
}

// WithDepthFormat sets the format of the depth attachment. TextureFormatUndefined drops the
// depth stencil state.
func WithDepthFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
	}
}

// WithSampleCount sets the multisample count of the attachments.
//
// Parameters:
//   - count: samples per pixel, values below 1 are treated as 1
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleCount = max(count, 1)
	}
}

// WithDepthCompare sets the depth test function.
//
// Parameters:
//   - compare: the comparison a fragment must pass against the stored depth
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepthCompare(compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for the pipeline.
//
// Parameters:
//   - enabled: true to enable depth writes
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the constant depth bias and slope scale for the pipeline.
// Shadow casters use it to push depth values away from the light and reduce acne.
//
// Parameters:
//   - bias: constant depth bias added to each fragment's depth
//   - slopeScale: depth bias scaled by the fragment's depth slope
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithCullMode sets the cull mode for the pipeline.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for the pipeline.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding order that is considered front facing.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask of every color target.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState sets the blend state of every color target. Nil disables blending.
//
// Parameters:
//   - blendState: the blend state
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}
