package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	vertexEntry   string
	fragmentEntry string
	vertexInputs  []VertexInput
	bindings      []Binding
	drawUniforms  UniformBlock
	hasDraw       bool
	layouts       map[int]wgpu.BindGroupLayoutDescriptor
	declarations  []Annotation
	module        *wgpu.ShaderModuleDescriptor
}

// Shader is a pre-processed WGSL module together with what a backend needs to build pipelines
// for it: entry points, vertex inputs, bindings and the layout of the draw uniform block. One
// module holds the vertex stage and, unless it is depth only, the fragment stage.
type Shader interface {
	// Key returns the name the shader was created with.
	Key() string

	// Source returns the expanded WGSL source.
	Source() string

	// Module returns the descriptor to create the GPU shader module from.
	Module() *wgpu.ShaderModuleDescriptor

	// VertexEntryPoint returns the @vertex function name.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the @fragment function name, or an empty string for depth only
	// shaders.
	FragmentEntryPoint() string

	// VertexInputs returns the vertex inputs sorted by location.
	VertexInputs() []VertexInput

	// Bindings returns every resource binding sorted by group and binding.
	Bindings() []Binding

	// TextureBinding returns the texture binding of a texture stage. The sampler is at the next
	// binding of the same group.
	//
	// Parameters:
	//   - stage: the texture stage, see TextureStage
	//
	// Returns:
	//   - Binding: the texture binding
	//   - bool: false if the shader samples nothing at that stage
	TextureBinding(stage uint8) (Binding, bool)

	// DrawUniforms returns the layout of the block bound by the draw provider.
	//
	// Returns:
	//   - UniformBlock: the block layout
	//   - bool: false if the shader declares no draw provider
	DrawUniforms() (UniformBlock, bool)

	// BindGroupLayoutDescriptors returns the layout descriptors keyed by group index, visible to
	// every stage the shader has.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Declarations returns the provider annotations found while pre-processing.
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects a WGSL source.
//
// Parameters:
//   - key: a unique name for the shader, used in labels and errors
//   - code: the annotated WGSL source
//   - options: snippets registered in addition to the embedded ones
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if pre-processing fails, the vertex stage is missing or a provider does
//     not match its binding
func NewShader(key string, code []byte, options ...PreProcessorBuilderOption) (Shader, error) {
	pp := NewPreProcessor(options...)
	source, err := pp.Process(key, string(code))
	if err != nil {
		return nil, err
	}

	s := &shader{
		key:          key,
		source:       source,
		declarations: append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
		},
	}

	cleaned := stripComments(source)
	s.vertexEntry, s.fragmentEntry = parseEntryPoints(cleaned)
	if s.vertexEntry == "" {
		return nil, fmt.Errorf("shader: %s has no @vertex entry point", key)
	}
	structs := parseStructBlocks(cleaned)
	sizes := computeStructSizes(structs)
	s.vertexInputs = parseVertexInputs(cleaned, s.vertexEntry, structs)
	s.bindings = parseBindings(cleaned)

	if err := s.applyDeclarations(structs, sizes); err != nil {
		return nil, err
	}

	visibility := wgpu.ShaderStageVertex
	if s.fragmentEntry != "" {
		visibility |= wgpu.ShaderStageFragment
	}
	s.layouts = bindGroupLayouts(s.bindings, visibility, sizes)
	return s, nil
}

// applyDeclarations attaches provider annotations to their bindings and reflects the draw
// uniform block.
func (s *shader) applyDeclarations(structs []parsedStruct, sizes map[string]wgslTypeLayout) error {
	for _, d := range s.declarations {
		i := s.bindingIndex(*d.Group, *d.Binding)
		if i < 0 {
			return fmt.Errorf("shader: %s: %s line %d: no binding at group %d binding %d", s.key, d.Source, d.Line, *d.Group, *d.Binding)
		}
		b := &s.bindings[i]
		b.Provider, b.Role = d.Args[0], d.Role()

		switch d.Args[0] {
		case AnnotationArgDraw:
			if s.hasDraw {
				return fmt.Errorf("shader: %s declares more than one draw provider", s.key)
			}
			if b.Kind != BindingUniform {
				return fmt.Errorf("shader: %s: draw provider %s is a %s binding", s.key, b.Name, b.Kind)
			}
			block, err := reflectBlock(b, structs, sizes)
			if err != nil {
				return fmt.Errorf("shader: %s: %w", s.key, err)
			}
			s.drawUniforms, s.hasDraw = block, true
		case AnnotationArgTexture, AnnotationArgShadow:
			texKind, samplerKind := BindingTexture, BindingSampler
			if d.Args[0] == AnnotationArgShadow {
				texKind, samplerKind = BindingDepthTexture, BindingComparisonSampler
			}
			if b.Kind != texKind {
				return fmt.Errorf("shader: %s: %s provider %s is a %s binding", s.key, d.Args[0], b.Name, b.Kind)
			}
			j := s.bindingIndex(b.Group, b.Binding+1)
			if j < 0 || s.bindings[j].Kind != samplerKind {
				return fmt.Errorf("shader: %s: %s needs a %s at binding %d", s.key, b.Name, samplerKind, b.Binding+1)
			}
			s.bindings[j].Provider, s.bindings[j].Role = b.Provider, b.Role
		}
	}
	return nil
}

func reflectBlock(b *Binding, structs []parsedStruct, sizes map[string]wgslTypeLayout) (UniformBlock, error) {
	for _, ps := range structs {
		if ps.name != b.Type {
			continue
		}
		members, size, ok := uniformMembers(ps, sizes)
		if !ok {
			return UniformBlock{}, fmt.Errorf("uniform block %s has members of unknown size", ps.name)
		}
		return UniformBlock{Group: b.Group, Binding: b.Binding, Type: ps.name, Size: size, Members: members}, nil
	}
	return UniformBlock{}, fmt.Errorf("uniform block type %s is not a struct", b.Type)
}

func (s *shader) bindingIndex(group, binding int) int {
	for i, b := range s.bindings {
		if b.Group == group && b.Binding == binding {
			return i
		}
	}
	return -1
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntry
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntry
}

func (s *shader) VertexInputs() []VertexInput {
	return s.vertexInputs
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) TextureBinding(stage uint8) (Binding, bool) {
	if int(stage) >= len(textureStages) {
		return Binding{}, false
	}
	role := textureStages[stage]
	for _, b := range s.bindings {
		if b.Role == role && (b.Kind == BindingTexture || b.Kind == BindingDepthTexture) {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) DrawUniforms() (UniformBlock, bool) {
	return s.drawUniforms, s.hasDraw
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.layouts
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
