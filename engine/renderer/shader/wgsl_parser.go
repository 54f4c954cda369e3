package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslSampledTextureMap maps WGSL sampled texture base names to their view dimension and multisampled flag
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_depth_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type. The type
	// capture is greedy to keep parameterized types like array<T, N> whole.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and
	// type from declarations like: @group(0) @binding(0) var<uniform> u: DrawUniforms;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseEntryPoints returns the names of the @vertex and @fragment functions. Missing stages
// return an empty name.
func parseEntryPoints(cleaned string) (vertex, fragment string) {
	if m := vertexEntryRegex.FindStringSubmatch(cleaned); m != nil {
		vertex = m[1]
	}
	if m := fragmentEntryRegex.FindStringSubmatch(cleaned); m != nil {
		fragment = m[1]
	}
	return vertex, fragment
}

// parseVertexInputs returns the @location fields of the struct the vertex entry point takes as
// its first parameter, sorted by location. Entry points with scalar parameters or none return nil.
//
// Parameters:
//   - cleaned: WGSL source with comments stripped
//   - entry: the vertex entry point name
//   - structs: the parsed structs of the source
//
// Returns:
//   - []VertexInput: the vertex inputs
func parseVertexInputs(cleaned, entry string, structs []parsedStruct) []VertexInput {
	if entry == "" {
		return nil
	}
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(entry) + `\s*\(\s*\w+\s*:\s*(\w+)`)
	m := re.FindStringSubmatch(cleaned)
	if m == nil {
		return nil
	}

	var inputs []VertexInput
	for _, ps := range structs {
		if ps.name != m[1] {
			continue
		}
		for _, f := range ps.fields {
			if f.location < 0 || f.isBuiltin {
				continue
			}
			inputs = append(inputs, VertexInput{Location: f.location, Name: f.name, Type: f.typeName})
		}
	}
	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Location < inputs[j].Location
	})
	return inputs
}

// parseBindings extracts every @group(N) @binding(M) declaration, sorted by group and binding.
//
// Parameters:
//   - cleaned: WGSL source with comments stripped
//
// Returns:
//   - []Binding: the declared bindings without provider information
func parseBindings(cleaned string) []Binding {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	bindings := make([]Binding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		bindings = append(bindings, Binding{
			Group:   group,
			Binding: binding,
			Name:    strings.TrimSpace(match[4]),
			Type:    strings.TrimSpace(match[5]),
			Kind:    classifyBinding(strings.TrimSpace(match[3]), strings.TrimSpace(match[5])),
		})
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

func classifyBinding(addressSpace, typeName string) BindingKind {
	switch {
	case addressSpace == "uniform":
		return BindingUniform
	case strings.HasPrefix(addressSpace, "storage"):
		return BindingStorage
	case typeName == "sampler_comparison":
		return BindingComparisonSampler
	case typeName == "sampler":
		return BindingSampler
	case strings.HasPrefix(typeName, "texture_depth_"):
		return BindingDepthTexture
	}
	return BindingTexture
}

// bindGroupLayouts converts reflected bindings into layout descriptors keyed by group index.
//
// Parameters:
//   - bindings: the reflected bindings, sorted by group and binding
//   - visibility: the shader stages every entry is visible to
//   - blockSizes: the size of every struct type, used as the buffers' minimum binding size
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
func bindGroupLayouts(bindings []Binding, visibility wgpu.ShaderStage, blockSizes map[string]wgslTypeLayout) map[int]wgpu.BindGroupLayoutDescriptor {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, b := range bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(b.Binding),
			Visibility: visibility,
		}
		switch b.Kind {
		case BindingUniform, BindingStorage:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
			if b.Kind == BindingStorage {
				entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			}
			if l, ok := blockSizes[b.Type]; ok {
				entry.Buffer.MinBindingSize = l.size
			}
		case BindingSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		case BindingComparisonSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		case BindingDepthTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			if info, ok := wgslSampledTextureMap[b.Type]; ok {
				entry.Texture.ViewDimension = info.viewDimension
				entry.Texture.Multisampled = info.multisampled
			}
		case BindingTexture:
			base, param := splitTypeParams(b.Type)
			if info, ok := wgslSampledTextureMap[base]; ok {
				entry.Texture.ViewDimension = info.viewDimension
				entry.Texture.Multisampled = info.multisampled
			}
			if st, ok := wgslSampleTypeMap[param]; ok {
				entry.Texture.SampleType = st
			}
		}
		groups[b.Group] = append(groups[b.Group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses a struct body into fields with their @location and @builtin attributes.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		field.isBuiltin = builtinRegex.MatchString(line)
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}

	return fields
}
