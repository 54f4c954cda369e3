package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuCompare maps the depth test bits of a state. A state without a depth test passes every
// fragment.
func wgpuCompare(state uint64) wgpu.CompareFunction {
	switch state & StateDepthTestMask {
	case StateDepthTestLess:
		return wgpu.CompareFunctionLess
	case StateDepthTestLequal:
		return wgpu.CompareFunctionLessEqual
	case StateDepthTestEqual:
		return wgpu.CompareFunctionEqual
	case StateDepthTestGequal:
		return wgpu.CompareFunctionGreaterEqual
	case StateDepthTestGreater:
		return wgpu.CompareFunctionGreater
	case StateDepthTestNotequal:
		return wgpu.CompareFunctionNotEqual
	case StateDepthTestNever:
		return wgpu.CompareFunctionNever
	}
	return wgpu.CompareFunctionAlways
}

func wgpuBlendFactor(f uint64) wgpu.BlendFactor {
	switch f {
	case StateBlendZero:
		return wgpu.BlendFactorZero
	case StateBlendSrcColor:
		return wgpu.BlendFactorSrc
	case StateBlendInvSrcColor:
		return wgpu.BlendFactorOneMinusSrc
	case StateBlendSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case StateBlendInvSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case StateBlendDstAlpha:
		return wgpu.BlendFactorDstAlpha
	case StateBlendInvDstAlpha:
		return wgpu.BlendFactorOneMinusDstAlpha
	case StateBlendDstColor:
		return wgpu.BlendFactorDst
	case StateBlendInvDstColor:
		return wgpu.BlendFactorOneMinusDst
	}
	return wgpu.BlendFactorOne
}

// wgpuBlendState returns nil when the state does not blend. Color and alpha share the factors.
func wgpuBlendState(state uint64) *wgpu.BlendState {
	src, dst := BlendFactors(state)
	if src == 0 && dst == 0 {
		return nil
	}
	component := wgpu.BlendComponent{
		SrcFactor: wgpuBlendFactor(src),
		DstFactor: wgpuBlendFactor(dst),
		Operation: wgpu.BlendOperationAdd,
	}
	return &wgpu.BlendState{Color: component, Alpha: component}
}

// wgpuCulling maps the cull bits with counter clockwise front faces. Culling both windings is not
// expressible and culls nothing.
func wgpuCulling(state uint64) wgpu.CullMode {
	switch state & StateCullMask {
	case StateCullCw:
		return wgpu.CullModeBack
	case StateCullCcw:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

func wgpuWriteMask(state uint64) wgpu.ColorWriteMask {
	mask := wgpu.ColorWriteMaskNone
	if state&StateWriteR != 0 {
		mask |= wgpu.ColorWriteMaskRed
	}
	if state&StateWriteG != 0 {
		mask |= wgpu.ColorWriteMaskGreen
	}
	if state&StateWriteB != 0 {
		mask |= wgpu.ColorWriteMaskBlue
	}
	if state&StateWriteA != 0 {
		mask |= wgpu.ColorWriteMaskAlpha
	}
	return mask
}

// stateOptions translates a render state into pipeline options.
func stateOptions(state uint64) []pipeline.PipelineBuilderOption {
	return []pipeline.PipelineBuilderOption{
		pipeline.WithDepthCompare(wgpuCompare(state)),
		pipeline.WithDepthWriteEnabled(state&StateWriteZ != 0),
		pipeline.WithCullMode(wgpuCulling(state)),
		pipeline.WithFrontFace(wgpu.FrontFaceCCW),
		pipeline.WithWriteMask(wgpuWriteMask(state)),
		pipeline.WithBlendState(wgpuBlendState(state)),
	}
}

// wgpuVertexFormat maps an attribute to a vertex format.
func wgpuVertexFormat(a VertexAttribute) (wgpu.VertexFormat, error) {
	switch a.Format {
	case AttributeFloat32:
		switch a.Components {
		case 1:
			return wgpu.VertexFormatFloat32, nil
		case 2:
			return wgpu.VertexFormatFloat32x2, nil
		case 3:
			return wgpu.VertexFormatFloat32x3, nil
		case 4:
			return wgpu.VertexFormatFloat32x4, nil
		}
	case AttributeUnorm8:
		switch a.Components {
		case 2:
			return wgpu.VertexFormatUnorm8x2, nil
		case 4:
			return wgpu.VertexFormatUnorm8x4, nil
		}
	}
	return wgpu.VertexFormatUndefined, fmt.Errorf("renderer: unsupported vertex attribute at location %d with %d components", a.Location, a.Components)
}

// wgpuVertexLayout builds the buffer layout of a vertex stream, keeping only the attributes the
// shader reads. Every shader input must be present in the layout.
//
// Parameters:
//   - layout: the stream layout
//   - inputs: the vertex inputs of the shader
//
// Returns:
//   - wgpu.VertexBufferLayout: the buffer layout
//   - error: an error if an input is missing or an attribute format is unsupported
func wgpuVertexLayout(layout VertexLayout, inputs []shader.VertexInput) (wgpu.VertexBufferLayout, error) {
	out := wgpu.VertexBufferLayout{
		ArrayStride: uint64(layout.Stride),
		StepMode:    wgpu.VertexStepModeVertex,
	}
	for _, in := range inputs {
		found := false
		for _, a := range layout.Attributes {
			if int(a.Location) != in.Location {
				continue
			}
			format, err := wgpuVertexFormat(a)
			if err != nil {
				return out, err
			}
			out.Attributes = append(out.Attributes, wgpu.VertexAttribute{
				Format:         format,
				Offset:         uint64(a.Offset),
				ShaderLocation: a.Location,
			})
			found = true
			break
		}
		if !found {
			return out, fmt.Errorf("renderer: layout %q has no attribute for input %q at location %d", layout.Name, in.Name, in.Location)
		}
	}
	return out, nil
}

func wgpuTextureFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case TextureRGBA8SRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case TextureDepth16:
		return wgpu.TextureFormatDepth16Unorm
	case TextureDepth24:
		return wgpu.TextureFormatDepth24Plus
	case TextureDepth32F:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func wgpuTextureUsage(flags TextureFlags) wgpu.TextureUsage {
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if flags&TextureRenderTarget != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

// unpackColor converts a 0xRRGGBBAA clear color.
func unpackColor(rgba uint32) wgpu.Color {
	return wgpu.Color{
		R: float64(rgba>>24&0xff) / 255,
		G: float64(rgba>>16&0xff) / 255,
		B: float64(rgba>>8&0xff) / 255,
		A: float64(rgba&0xff) / 255,
	}
}

// align rounds n up to a multiple of a, a power of two.
func align(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}
