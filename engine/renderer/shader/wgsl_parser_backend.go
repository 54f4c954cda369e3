package shader

import (
	"strconv"
	"strings"
)

// wgslPrimitiveLayoutMap maps WGSL scalar, vector and matrix type names to their byte size and
// alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec3<i32>": {12, 16},
	"vec4<i32>": {16, 16},
	"vec2<u32>": {8, 8},
	"vec3<u32>": {12, 16},
	"vec4<u32>": {16, 16},

	// matCxR<f32>: C columns of vecR<f32>
	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// uniformArrayAlign is the minimum alignment of arrays and structs in the uniform address space.
const uniformArrayAlign = 16

// roundUpAlign rounds value up to the next multiple of a power of two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// splitArrayType splits array<T, N> into its element type and count. A runtime sized array
// returns a count of 0.
//
// Returns:
//   - string: the element type, or typeName itself if it is not an array
//   - int: the element count
//   - bool: true if typeName is an array
func splitArrayType(typeName string) (string, int, bool) {
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return typeName, 1, false
	}
	inner = inner[:len(inner)-1]
	i := strings.LastIndex(inner, ",")
	if i < 0 || strings.Count(inner[i:], ">") > 0 {
		return strings.TrimSpace(inner), 0, true
	}
	count, err := strconv.Atoi(strings.TrimSpace(inner[i+1:]))
	if err != nil {
		return strings.TrimSpace(inner), 0, true
	}
	return strings.TrimSpace(inner[:i]), count, true
}

// resolveTypeLayout resolves a type to its size and alignment using primitives and already
// computed structs. Runtime sized arrays resolve to one element.
//
// Parameters:
//   - typeName: the WGSL type name, e.g. "f32", "DrawUniforms", "array<vec4<f32>, 8>"
//   - knownTypes: already resolved struct layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	elem, count, isArray := splitArrayType(typeName)
	if !isArray {
		return wgslTypeLayout{}, false
	}
	elemLayout, ok := resolveTypeLayout(elem, knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elemLayout.align, elemLayout.size)
	return wgslTypeLayout{stride * uint64(max(count, 1)), elemLayout.align}, true
}

// computeStructLayout lays out a struct with the storage rules: each field at its next aligned
// offset, the size rounded up to the largest field alignment. Builtin fields are skipped.
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fieldLayout.align, offset) + fieldLayout.size
		maxAlign = max(maxAlign, fieldLayout.align)
	}

	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes lays out every struct, resolving structs that nest other structs over as
// many rounds as needed. Structs with unknown field types are left out.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}

	return resolved
}

// uniformMembers lays out a struct with the uniform address space rules, which raise the
// alignment of arrays and of the struct itself to 16 bytes.
//
// Parameters:
//   - ps: the struct bound as a uniform block
//   - knownTypes: already resolved struct layouts
//
// Returns:
//   - []UniformMember: the members in declaration order
//   - uint64: the block size
//   - bool: false if a member has an unknown type or is a runtime sized array
func uniformMembers(ps parsedStruct, knownTypes map[string]wgslTypeLayout) ([]UniformMember, uint64, bool) {
	members := make([]UniformMember, 0, len(ps.fields))
	offset := uint64(0)
	maxAlign := uint64(uniformArrayAlign)

	for _, f := range ps.fields {
		elem, count, isArray := splitArrayType(f.typeName)
		if isArray && count == 0 {
			return nil, 0, false
		}
		l, ok := resolveTypeLayout(elem, knownTypes)
		if !ok {
			return nil, 0, false
		}

		m := UniformMember{Name: f.name, Type: f.typeName, Stride: l.size, Count: 1}
		align := l.align
		if isArray {
			align = max(align, uniformArrayAlign)
			m.Stride = roundUpAlign(align, l.size)
			m.Count = count
		}
		offset = roundUpAlign(align, offset)
		m.Offset = offset
		offset += m.Size()
		maxAlign = max(maxAlign, align)
		members = append(members, m)
	}

	return members, roundUpAlign(maxAlign, offset), true
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types without
// parameters return an empty parameter string.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits at commas outside angle brackets, keeping array<T, N> whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
