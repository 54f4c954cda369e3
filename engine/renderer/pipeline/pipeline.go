package pipeline

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	key string

	vertexModule   *wgpu.ShaderModule
	vertexEntry    string
	vertexBuffers  []wgpu.VertexBufferLayout
	fragmentModule *wgpu.ShaderModule
	fragmentEntry  string

	// colorFormats has one entry per color attachment. depthFormat is undefined without a depth attachment.
	colorFormats []wgpu.TextureFormat
	depthFormat  wgpu.TextureFormat
	sampleCount  uint32

	depthCompare        wgpu.CompareFunction
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState

	renderPipeline *wgpu.RenderPipeline
}

// Pipeline is one render pipeline: the stages of a program together with the fixed function
// state of a draw and the formats of the attachments it renders into. A backend keeps one per
// distinct combination and creates the GPU object lazily.
type Pipeline interface {
	// Key returns the cache key the pipeline was created with.
	Key() string

	// Descriptor builds the creation descriptor against a pipeline layout.
	//
	// Parameters:
	//   - layout: the pipeline layout holding the bind group layouts of the program
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor
	Descriptor(layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor

	// Create creates the GPU pipeline. Calling it again after a success is a no-op.
	//
	// Parameters:
	//   - device: the device to create the pipeline on
	//   - layout: the pipeline layout of the program
	//
	// Returns:
	//   - error: an error if the stages are incomplete or creation failed
	Create(device *wgpu.Device, layout *wgpu.PipelineLayout) error

	// RenderPipeline returns the GPU pipeline, nil before Create.
	RenderPipeline() *wgpu.RenderPipeline

	DepthCompare() wgpu.CompareFunction
	DepthWriteEnabled() bool
	CullMode() wgpu.CullMode
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask
	BlendState() *wgpu.BlendState
	SampleCount() uint32

	// Release releases the GPU pipeline. The pipeline may be created again afterwards.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline description. Defaults: triangle lists, counter clockwise front
// faces, no culling, no depth attachment, all color channels written and one sample.
//
// Parameters:
//   - key: the unique identifier of the pipeline, used in labels and for caching
//   - options: builder options configuring stages, targets and state
//
// Returns:
//   - Pipeline: the pipeline
func NewPipeline(key string, options ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:          key,
		depthFormat:  wgpu.TextureFormatUndefined,
		sampleCount:  1,
		depthCompare: wgpu.CompareFunctionAlways,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Descriptor(layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.key + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertexModule,
			EntryPoint: p.vertexEntry,
			Buffers:    p.vertexBuffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}

	if len(p.colorFormats) > 0 && p.fragmentModule != nil {
		targets := make([]wgpu.ColorTargetState, len(p.colorFormats))
		for i, format := range p.colorFormats {
			targets[i] = wgpu.ColorTargetState{
				Format:    format,
				Blend:     p.blendState,
				WriteMask: p.writeMask,
			}
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     p.fragmentModule,
			EntryPoint: p.fragmentEntry,
			Targets:    targets,
		}
	}

	if p.depthFormat != wgpu.TextureFormatUndefined {
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              p.depthFormat,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        p.depthCompare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}

func (p *pipeline) Create(device *wgpu.Device, layout *wgpu.PipelineLayout) error {
	if p.renderPipeline != nil {
		return nil
	}
	if p.vertexModule == nil || p.vertexEntry == "" {
		return fmt.Errorf("pipeline: %s has no vertex stage", p.key)
	}
	if len(p.colorFormats) > 0 && p.fragmentModule == nil {
		return fmt.Errorf("pipeline: %s renders %d color targets without a fragment stage", p.key, len(p.colorFormats))
	}

	created, err := device.CreateRenderPipeline(p.Descriptor(layout))
	if err != nil {
		return fmt.Errorf("pipeline: create %s: %w", p.key, err)
	}
	p.renderPipeline = created
	return nil
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	return p.depthCompare
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
