package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestPipelineDescriptor(t *testing.T) {
	blend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
	}
	module := &wgpu.ShaderModule{}

	type spec struct {
		options     []PipelineBuilderOption
		expFragment bool
		expTargets  int
		expDepth    bool
		expSamples  uint32
	}

	specs := []spec{
		{
			options:    []PipelineBuilderOption{WithVertexStage(module, "vs_main"), WithDepthFormat(wgpu.TextureFormatDepth32Float), WithDepthWriteEnabled(true)},
			expDepth:   true,
			expSamples: 1,
		},
		{
			options: []PipelineBuilderOption{
				WithVertexStage(module, "vs_main"),
				WithFragmentStage(module, "fs_main"),
				WithColorTargets(wgpu.TextureFormatBGRA8Unorm),
				WithDepthFormat(wgpu.TextureFormatDepth24Plus),
				WithSampleCount(4),
				WithBlendState(blend),
			},
			expFragment: true,
			expTargets:  1,
			expDepth:    true,
			expSamples:  4,
		},
		{
			options: []PipelineBuilderOption{
				WithVertexStage(module, "vs_main"),
				WithFragmentStage(module, "fs_main"),
				WithColorTargets(wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm),
				WithSampleCount(0),
			},
			expFragment: true,
			expTargets:  2,
			expSamples:  1,
		},
	}

	for index, s := range specs {
		p := NewPipeline("test", s.options...)
		desc := p.Descriptor(nil)
		if (desc.Fragment != nil) != s.expFragment {
			t.Fatalf("[spec %d] expected a fragment stage %v; got %+v", index, s.expFragment, desc.Fragment)
		}
		if desc.Fragment != nil {
			if len(desc.Fragment.Targets) != s.expTargets {
				t.Fatalf("[spec %d] expected %d targets; got %d", index, s.expTargets, len(desc.Fragment.Targets))
			}
			for _, target := range desc.Fragment.Targets {
				if target.Blend != p.BlendState() || target.WriteMask != wgpu.ColorWriteMaskAll {
					t.Fatalf("[spec %d] expected every target to share blend and write mask; got %+v", index, target)
				}
			}
		}
		if (desc.DepthStencil != nil) != s.expDepth {
			t.Fatalf("[spec %d] expected a depth state %v; got %+v", index, s.expDepth, desc.DepthStencil)
		}
		if desc.Multisample.Count != s.expSamples || p.SampleCount() != s.expSamples {
			t.Fatalf("[spec %d] expected %d samples; got %d", index, s.expSamples, desc.Multisample.Count)
		}
		if desc.Primitive.Topology != wgpu.PrimitiveTopologyTriangleList || desc.Primitive.CullMode != wgpu.CullModeNone {
			t.Fatalf("[spec %d] expected default primitive state; got %+v", index, desc.Primitive)
		}
	}
}

func TestPipelineCreateRequiresStages(t *testing.T) {
	type spec struct {
		options []PipelineBuilderOption
	}

	specs := []spec{
		{options: nil},
		{options: []PipelineBuilderOption{WithVertexStage(&wgpu.ShaderModule{}, "vs_main"), WithColorTargets(wgpu.TextureFormatRGBA8Unorm)}},
	}

	for index, s := range specs {
		p := NewPipeline("incomplete", s.options...)
		if err := p.Create(nil, nil); err == nil {
			t.Fatalf("[spec %d] expected an error for incomplete stages", index)
		}
		if p.RenderPipeline() != nil {
			t.Fatalf("[spec %d] expected no pipeline", index)
		}
	}
}
