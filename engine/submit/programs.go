package submit

import (
	"embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

//go:embed assets/*.wgsl
var programSources embed.FS

// Programs holds the built-in programs the submitter draws with.
type Programs struct {
	Simple        renderer.Handle
	Lit           renderer.Handle
	SimpleSkinned renderer.Handle
	LitSkinned    renderer.Handle
	// Depth and DepthSkinned have no fragment stage. They serve depth prepasses and shadow maps.
	Depth        renderer.Handle
	DepthSkinned renderer.Handle
	Line         renderer.Handle

	shaders []renderer.Handle
}

type programDecl struct {
	dst       *renderer.Handle
	file      string
	depthOnly bool
}

// LoadPrograms compiles the embedded WGSL sources. Each source holds both entry points, so one
// shader serves as vertex and fragment stage of its program.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - *Programs: the programs
//   - error: an error if a shader or program could not be created, after releasing what was created
func LoadPrograms(b renderer.Backend) (*Programs, error) {
	p := &Programs{}
	decls := []programDecl{
		{&p.Simple, "simple", false},
		{&p.Lit, "lit", false},
		{&p.SimpleSkinned, "simple_skinned", false},
		{&p.LitSkinned, "lit_skinned", false},
		{&p.Depth, "depth", true},
		{&p.DepthSkinned, "depth_skinned", true},
		{&p.Line, "line", false},
	}

	for _, d := range decls {
		code, err := programSources.ReadFile("assets/" + d.file + ".wgsl")
		if err != nil {
			p.Destroy(b)
			return nil, fmt.Errorf("submit: read program %q: %w", d.file, err)
		}
		sh, err := b.CreateShader(d.file, code)
		if err != nil {
			p.Destroy(b)
			return nil, fmt.Errorf("submit: create shader %q: %w", d.file, err)
		}
		p.shaders = append(p.shaders, sh)

		fs := sh
		if d.depthOnly {
			fs = renderer.Handle{}
		}
		h, err := b.CreateProgram(sh, fs)
		if err != nil {
			p.Destroy(b)
			return nil, fmt.Errorf("submit: create program %q: %w", d.file, err)
		}
		*d.dst = h
	}
	return p, nil
}

// Destroy releases every program and shader.
func (p *Programs) Destroy(b renderer.Backend) {
	for _, h := range []*renderer.Handle{&p.Simple, &p.Lit, &p.SimpleSkinned, &p.LitSkinned, &p.Depth, &p.DepthSkinned, &p.Line} {
		if h.Valid() {
			b.Destroy(*h)
		}
		*h = renderer.Handle{}
	}
	for _, sh := range p.shaders {
		b.Destroy(sh)
	}
	p.shaders = nil
}
