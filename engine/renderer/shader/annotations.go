// annotations.go defines the @oxy: annotations understood by the WGSL pre-processor.
// Annotations are single line comments. An include splices a registered snippet into the
// source; a provider names the role of the binding declared below it, so a backend can bind
// draw uniforms and texture stages without matching variable names.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude splices a snippet into the source. Snippets may include other
	// snippets.
	//
	// Syntax: //@oxy:include <snippet>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeProvider declares who feeds a binding. The binding itself stays hand
	// written below the annotation.
	//
	// Syntax:
	//   //@oxy:provider <group> <binding> draw
	//   //@oxy:provider <group> <binding> texture <role>
	//   //@oxy:provider <group> <binding> shadow <role>
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is one parsed @oxy: annotation.
type Annotation struct {
	Type AnnotationType

	// Args holds the arguments. For include [0] is the snippet name; for provider [0] is the
	// provider identity and [1] the optional binding role.
	Args []AnnotationArg

	// Source is the shader or snippet the annotation was found in.
	Source string

	// Line is the 1-based line number inside Source.
	Line int

	// Group and Binding are set for provider annotations only.
	Group   *int
	Binding *int
}

// Role returns the binding role of a provider annotation, or an empty argument.
func (a Annotation) Role() AnnotationArg {
	if len(a.Args) < 2 {
		return ""
	}
	return a.Args[1]
}

// AnnotationArg is an identity or role argument of an annotation.
type AnnotationArg string

// Provider identities.
const (
	// AnnotationArgDraw is the per draw uniform block.
	AnnotationArgDraw AnnotationArg = "draw"

	// AnnotationArgTexture is a material texture and the sampler at the next binding.
	AnnotationArgTexture AnnotationArg = "texture"

	// AnnotationArgShadow is a shadow map and the comparison sampler at the next binding.
	AnnotationArgShadow AnnotationArg = "shadow"
)

// Binding roles. Their order is the texture stage order.
const (
	AnnotationArgAlbedo    AnnotationArg = "albedo"
	AnnotationArgMetal     AnnotationArg = "metal"
	AnnotationArgNormal    AnnotationArg = "normal"
	AnnotationArgEmissive  AnnotationArg = "emissive"
	AnnotationArgShadow0   AnnotationArg = "shadow0"
	AnnotationArgShadow1   AnnotationArg = "shadow1"
	AnnotationArgShadowCSM AnnotationArg = "shadow_csm"
)

var textureStages = []AnnotationArg{
	AnnotationArgAlbedo,
	AnnotationArgMetal,
	AnnotationArgNormal,
	AnnotationArgEmissive,
	AnnotationArgShadow0,
	AnnotationArgShadow1,
	AnnotationArgShadowCSM,
}

var textureRoles = textureStages[:4]

var shadowRoles = textureStages[4:]

// TextureStage returns the texture stage a binding role is bound at.
//
// Parameters:
//   - role: the binding role of a texture or shadow provider
//
// Returns:
//   - uint8: the stage
//   - bool: false if role is not a texture role
func TextureStage(role AnnotationArg) (uint8, bool) {
	i := slices.Index(textureStages, role)
	if i < 0 {
		return 0, false
	}
	return uint8(i), true
}

// parseAnnotation parses one line of WGSL. Lines without the prefix return nil and no error.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the annotation, or nil if the line is not one
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	after, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	after, ok = strings.CutPrefix(strings.TrimSpace(after), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires group, binding, identity and an optional role", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy provider annotation", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy provider annotation", lineNum, args[2])
		}
		a := &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    []AnnotationArg{AnnotationArg(args[3])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}
		if len(args) == 5 {
			a.Args = append(a.Args, AnnotationArg(args[4]))
		}
		if err := validateProvider(a); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func validateProvider(a *Annotation) error {
	role := a.Role()
	switch a.Args[0] {
	case AnnotationArgDraw:
		if role != "" {
			return fmt.Errorf("draw provider takes no role, got %q", role)
		}
	case AnnotationArgTexture:
		if !slices.Contains(textureRoles, role) {
			return fmt.Errorf("unknown texture role %q", role)
		}
	case AnnotationArgShadow:
		if !slices.Contains(shadowRoles, role) {
			return fmt.Errorf("unknown shadow role %q", role)
		}
	default:
		return fmt.Errorf("unknown provider identity %q", a.Args[0])
	}
	return nil
}
