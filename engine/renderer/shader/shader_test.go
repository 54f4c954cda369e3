package shader

import (
	"slices"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const testSimpleShader = `struct VertexInput {
//@oxy:include simple_vertex
};

struct DrawUniforms {
//@oxy:include draw_builtins
    u_color0: vec4<f32>,
    u_texmad: vec4<f32>,
    u_billboarded: vec4<f32>,
};

//@oxy:provider 0 0 draw
@group(0) @binding(0) var<uniform> u: DrawUniforms;

//@oxy:provider 1 0 texture albedo
@group(1) @binding(0) var t_albedo: texture_2d<f32>;
@group(1) @binding(1) var s_albedo: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = u.u_proj * u.u_view * u.u_model * vec4<f32>(in.position, 1.0);
    out.color = in.color * u.u_color0;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return in.color;
}
`

const testSkinnedDepthShader = `struct VertexInput {
    @location(0) position: vec3<f32>,
//@oxy:include skinned_vertex
};

struct DrawUniforms {
//@oxy:include draw_builtins
    u_bias: vec4<f32>,
    u_bones: array<mat4x4<f32>, 64>,
};

//@oxy:provider 0 0 draw
@group(0) @binding(0) var<uniform> u: DrawUniforms;

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return u.u_proj * vec4<f32>(in.position, 1.0);
}
`

func TestPreProcessorIncludes(t *testing.T) {
	type spec struct {
		snippets  map[string]string
		source    string
		expected  string
		expErr    string
		expDecls  int
		expSource string
	}

	specs := []spec{
		{
			snippets: map[string]string{"outer": "a\n//@oxy:include inner\nc\n", "inner": "b\n"},
			source:   "start\n//@oxy:include outer\nend",
			expected: "start\na\nb\nc\nend",
		},
		{
			snippets:  map[string]string{"tex": "//@oxy:provider 1 0 texture albedo\nvar t: texture_2d<f32>;\n"},
			source:    "//@oxy:include tex",
			expected:  "var t: texture_2d<f32>;",
			expDecls:  1,
			expSource: "tex",
		},
		{
			snippets: map[string]string{"a": "//@oxy:include b\n", "b": "//@oxy:include a\n"},
			source:   "//@oxy:include a",
			expErr:   "include cycle",
		},
		{
			snippets: map[string]string{"self": "//@oxy:include self\n"},
			source:   "//@oxy:include self",
			expErr:   "include cycle",
		},
		{
			source: "//@oxy:include nope",
			expErr: "unknown snippet",
		},
		{
			source: "//@oxy:bogus thing",
			expErr: "unknown @oxy annotation type",
		},
	}

	for index, s := range specs {
		var options []PreProcessorBuilderOption
		for name, src := range s.snippets {
			options = append(options, WithSnippet(name, src))
		}
		pp := NewPreProcessor(options...)
		out, err := pp.Process("test", s.source)
		if s.expErr != "" {
			if err == nil || !strings.Contains(err.Error(), s.expErr) {
				t.Fatalf("[spec %d] expected an error containing %q; got %v", index, s.expErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] expected no error; got %v", index, err)
		}
		if out != s.expected {
			t.Fatalf("[spec %d] expected %q; got %q", index, s.expected, out)
		}
		decls := pp.Declarations()
		if len(decls) != s.expDecls {
			t.Fatalf("[spec %d] expected %d declarations; got %d", index, s.expDecls, len(decls))
		}
		if s.expDecls > 0 && decls[0].Source != s.expSource {
			t.Fatalf("[spec %d] expected the declaration to come from %q; got %q", index, s.expSource, decls[0].Source)
		}
	}
}

func TestPreProcessorDepthLimit(t *testing.T) {
	var options []PreProcessorBuilderOption
	for i := 0; i < maxIncludeDepth+1; i++ {
		options = append(options, WithSnippet(
			"s"+string(rune('a'+i)),
			"//@oxy:include s"+string(rune('a'+i+1))+"\n",
		))
	}
	_, err := NewPreProcessor(options...).Process("test", "//@oxy:include sa")
	if err == nil || !strings.Contains(err.Error(), "nested deeper") {
		t.Fatalf("expected a depth error; got %v", err)
	}
}

func TestEmbeddedSnippets(t *testing.T) {
	names := NewPreProcessor().Snippets()
	for _, expected := range []string{"billboard", "draw_builtins", "lighting", "lighting_uniforms", "lit_vertex", "material_textures", "material_uniforms", "shadow_textures", "simple_vertex", "skinned_vertex"} {
		if !slices.Contains(names, expected) {
			t.Fatalf("expected embedded snippet %q; got %v", expected, names)
		}
	}
}

func TestParseAnnotation(t *testing.T) {
	type spec struct {
		line    string
		expNil  bool
		expErr  bool
		expRole AnnotationArg
	}

	specs := []spec{
		{line: "    u_model: mat4x4<f32>,", expNil: true},
		{line: "// a plain comment", expNil: true},
		{line: "//@oxy:provider 0 0 draw"},
		{line: "  // @oxy:provider 1 8 shadow shadow0", expRole: AnnotationArgShadow0},
		{line: "//@oxy:provider 0 0 draw albedo", expErr: true},
		{line: "//@oxy:provider 1 0 texture shadow0", expErr: true},
		{line: "//@oxy:provider 1 8 shadow albedo", expErr: true},
		{line: "//@oxy:provider x 0 draw", expErr: true},
		{line: "//@oxy:provider 0 -1 draw", expErr: true},
		{line: "//@oxy:provider 0 0 camera", expErr: true},
		{line: "//@oxy:include", expErr: true},
		{line: "//@oxy:include a b", expErr: true},
		{line: "//@oxy:", expErr: true},
	}

	for index, s := range specs {
		a, err := parseAnnotation(s.line, 1)
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error for %q", index, s.line)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] expected no error; got %v", index, err)
		}
		if (a == nil) != s.expNil {
			t.Fatalf("[spec %d] expected nil %v; got %+v", index, s.expNil, a)
		}
		if a != nil && a.Role() != s.expRole {
			t.Fatalf("[spec %d] expected role %q; got %q", index, s.expRole, a.Role())
		}
	}
}

func TestShaderReflection(t *testing.T) {
	s, err := NewShader("simple", []byte(testSimpleShader))
	if err != nil {
		t.Fatalf("expected the shader to load; got %v", err)
	}

	if s.VertexEntryPoint() != "vs_main" || s.FragmentEntryPoint() != "fs_main" {
		t.Fatalf("expected entry points vs_main and fs_main; got %q and %q", s.VertexEntryPoint(), s.FragmentEntryPoint())
	}
	if strings.Contains(s.Source(), "@oxy") || s.Module().WGSLDescriptor.Code != s.Source() {
		t.Fatalf("expected the module to hold the expanded source")
	}

	inputs := s.VertexInputs()
	expInputs := []string{"position", "texcoord", "color", "billboard_pos"}
	if len(inputs) != len(expInputs) {
		t.Fatalf("expected %d vertex inputs; got %+v", len(expInputs), inputs)
	}
	for i, in := range inputs {
		if in.Location != i || in.Name != expInputs[i] {
			t.Fatalf("expected input %d to be %q; got %+v", i, expInputs[i], in)
		}
	}

	block, ok := s.DrawUniforms()
	if !ok {
		t.Fatalf("expected a draw uniform block")
	}
	type spec struct {
		member    string
		expOffset uint64
		expSize   uint64
	}

	specs := []spec{
		{"u_model", 0, 64},
		{"u_view", 64, 64},
		{"u_proj", 128, 64},
		{"u_color0", 192, 16},
		{"u_texmad", 208, 16},
		{"u_billboarded", 224, 16},
	}

	for index, sp := range specs {
		m, ok := block.Member(sp.member)
		if !ok || m.Offset != sp.expOffset || m.Size() != sp.expSize {
			t.Fatalf("[spec %d] expected %s at %d with size %d; got %+v", index, sp.member, sp.expOffset, sp.expSize, m)
		}
	}
	if block.Size != 240 {
		t.Fatalf("expected a 240 byte block; got %d", block.Size)
	}

	tex, ok := s.TextureBinding(0)
	if !ok || tex.Group != 1 || tex.Binding != 0 || tex.Name != "t_albedo" {
		t.Fatalf("expected the albedo texture at group 1 binding 0; got %+v", tex)
	}
	if _, ok := s.TextureBinding(1); ok {
		t.Fatalf("expected no metal texture")
	}
	if b := s.Bindings(); len(b) != 3 || b[2].Kind != BindingSampler || b[2].Role != AnnotationArgAlbedo {
		t.Fatalf("expected the sampler to inherit the albedo role; got %+v", b)
	}

	layouts := s.BindGroupLayoutDescriptors()
	draw := layouts[0].Entries
	if len(draw) != 1 || draw[0].Buffer.Type != wgpu.BufferBindingTypeUniform || draw[0].Buffer.MinBindingSize != 240 {
		t.Fatalf("expected a 240 byte uniform buffer entry; got %+v", draw)
	}
	if draw[0].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Fatalf("expected the entry visible to both stages; got %v", draw[0].Visibility)
	}
	if len(layouts[1].Entries) != 2 || layouts[1].Entries[0].Texture.SampleType != wgpu.TextureSampleTypeFloat {
		t.Fatalf("expected a float texture and a sampler in group 1; got %+v", layouts[1].Entries)
	}
}

func TestShaderUniformArrays(t *testing.T) {
	s, err := NewShader("depth_skinned", []byte(testSkinnedDepthShader))
	if err != nil {
		t.Fatalf("expected the shader to load; got %v", err)
	}
	if s.FragmentEntryPoint() != "" {
		t.Fatalf("expected a depth only shader; got fragment entry %q", s.FragmentEntryPoint())
	}
	block, _ := s.DrawUniforms()
	bones, ok := block.Member("u_bones")
	if !ok || bones.Offset != 208 || bones.Stride != 64 || bones.Count != 64 {
		t.Fatalf("expected 64 bones of 64 bytes at 208; got %+v", bones)
	}
	if block.Size != 208+64*64 {
		t.Fatalf("expected a %d byte block; got %d", 208+64*64, block.Size)
	}
	if inputs := s.VertexInputs(); len(inputs) != 3 || inputs[1].Location != 7 || inputs[2].Name != "bone_index" {
		t.Fatalf("expected position and the two skinning inputs; got %+v", inputs)
	}
}

func TestShaderErrors(t *testing.T) {
	type spec struct {
		source string
		expErr string
	}

	specs := []spec{
		{"fn f() {}", "no @vertex entry point"},
		{"//@oxy:provider 0 0 draw\n@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }", "no binding"},
		{
			"struct U { a: vec4<f32>, };\n//@oxy:provider 0 0 draw\n@group(0) @binding(0) var<uniform> u: U;\n//@oxy:provider 0 1 draw\n@group(0) @binding(1) var<uniform> v: U;\n@vertex fn vs_main() -> @builtin(position) vec4<f32> { return u.a; }",
			"more than one draw provider",
		},
		{"//@oxy:provider 1 0 texture albedo\n@group(1) @binding(0) var t: texture_2d<f32>;\n@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }", "needs a sampler"},
		{"//@oxy:provider 1 8 shadow shadow0\n@group(1) @binding(8) var t: texture_2d<f32>;\n@group(1) @binding(9) var s: sampler_comparison;\n@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }", "is a texture binding"},
		{"struct U { a: array<vec4<f32>>, };\n//@oxy:provider 0 0 draw\n@group(0) @binding(0) var<uniform> u: U;\n@vertex fn vs_main() -> @builtin(position) vec4<f32> { return u.a[0]; }", "unknown size"},
	}

	for index, s := range specs {
		_, err := NewShader("bad", []byte(s.source))
		if err == nil || !strings.Contains(err.Error(), s.expErr) {
			t.Fatalf("[spec %d] expected an error containing %q; got %v", index, s.expErr, err)
		}
	}
}

func TestTextureStage(t *testing.T) {
	type spec struct {
		role     AnnotationArg
		expStage uint8
		expOk    bool
	}

	specs := []spec{
		{AnnotationArgAlbedo, 0, true},
		{AnnotationArgEmissive, 3, true},
		{AnnotationArgShadowCSM, 6, true},
		{AnnotationArgDraw, 0, false},
	}

	for index, s := range specs {
		stage, ok := TextureStage(s.role)
		if stage != s.expStage || ok != s.expOk {
			t.Fatalf("[spec %d] expected (%d, %v); got (%d, %v)", index, s.expStage, s.expOk, stage, ok)
		}
	}
}
