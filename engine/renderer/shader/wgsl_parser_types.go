package shader

import "github.com/cogentcore/webgpu/wgpu"

// BindingKind classifies a resource binding.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingStorage
	BindingTexture
	BindingDepthTexture
	BindingSampler
	BindingComparisonSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingTexture:
		return "texture"
	case BindingDepthTexture:
		return "depth texture"
	case BindingSampler:
		return "sampler"
	case BindingComparisonSampler:
		return "comparison sampler"
	}
	return "unknown"
}

// Binding is one @group/@binding resource declared by a shader.
type Binding struct {
	Group   int
	Binding int
	Name    string
	Type    string
	Kind    BindingKind

	// Provider and Role come from the provider annotation of the binding. Samplers inherit them
	// from the texture one binding below.
	Provider AnnotationArg
	Role     AnnotationArg
}

// VertexInput is one @location field of the vertex entry point's input struct.
type VertexInput struct {
	Location int
	Name     string
	Type     string
}

// UniformMember is one member of a uniform block, laid out with the uniform address space rules.
type UniformMember struct {
	Name   string
	Type   string
	Offset uint64

	// Stride is the distance between array elements, or the member size for non arrays.
	Stride uint64
	Count  int
}

// Size returns the bytes the member occupies.
func (m UniformMember) Size() uint64 {
	return m.Stride * uint64(m.Count)
}

// UniformBlock is the reflected layout of the block bound by the draw provider.
type UniformBlock struct {
	Group   int
	Binding int
	Type    string
	Size    uint64
	Members []UniformMember
}

// Member looks up a member by name.
func (b UniformBlock) Member(name string) (UniformMember, bool) {
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return UniformMember{}, false
}

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}
