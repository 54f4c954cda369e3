// pre_processor.go expands @oxy: annotations in WGSL sources. Includes are spliced
// recursively from a snippet registry seeded with the embedded assets; provider annotations are
// removed from the output and collected as declarations for the backend.
package shader

import (
	"embed"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
)

//go:embed assets/*.wgsl
var snippetFiles embed.FS

// maxIncludeDepth bounds nested includes.
const maxIncludeDepth = 8

var embeddedSnippets = sync.OnceValue(func() map[string]string {
	entries, err := snippetFiles.ReadDir("assets")
	if err != nil {
		panic(fmt.Sprintf("shader: failed to list embedded snippets: %v", err))
	}
	snippets := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := snippetFiles.ReadFile("assets/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("shader: failed to read embedded snippet %q: %v", e.Name(), err))
		}
		snippets[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = string(data)
	}
	return snippets
})

type preProcessor struct {
	snippets map[string]string

	// declarations is reset at the start of every Process call.
	declarations []Annotation
}

// PreProcessor turns annotated WGSL into plain WGSL.
type PreProcessor interface {
	// Process expands every include and strips every provider annotation.
	//
	// Parameters:
	//   - name: the shader name used in error messages and in Annotation.Source
	//   - source: the annotated WGSL
	//
	// Returns:
	//   - string: the expanded WGSL
	//   - error: an error for malformed annotations, unknown snippets or include cycles
	Process(name, source string) (string, error)

	// Declarations returns the provider annotations of the last Process call in source order.
	Declarations() []Annotation

	// Snippets returns the sorted names of the registered snippets.
	Snippets() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor holding the embedded snippets plus any registered
// through options.
//
// Parameters:
//   - options: variadic list of PreProcessorBuilderOption functions
//
// Returns:
//   - PreProcessor: a ready to use pre-processor
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		snippets: maps.Clone(embeddedSnippets()),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(name, source string) (string, error) {
	p.declarations = p.declarations[:0]
	out, err := p.expand(name, source, nil)
	if err != nil {
		return "", err
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) Snippets() []string {
	return slices.Sorted(maps.Keys(p.snippets))
}

// expand returns the lines of source with includes spliced in. stack holds the names being
// expanded, outermost first.
func (p *preProcessor) expand(name, source string, stack []string) ([]string, error) {
	if slices.Contains(stack, name) {
		return nil, fmt.Errorf("shader: include cycle %s -> %s", strings.Join(stack, " -> "), name)
	}
	if len(stack) >= maxIncludeDepth {
		return nil, fmt.Errorf("shader: includes nested deeper than %d in %s", maxIncludeDepth, name)
	}
	stack = append(stack, name)

	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return nil, fmt.Errorf("shader: %s: %w", name, err)
		}
		if a == nil {
			out = append(out, line)
			continue
		}
		a.Source = name

		switch a.Type {
		case annotationTypeInclude:
			snippet := string(a.Args[0])
			src, ok := p.snippets[snippet]
			if !ok {
				return nil, fmt.Errorf("shader: %s: line %d: unknown snippet %q", name, a.Line, snippet)
			}
			included, err := p.expand(snippet, src, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, included...)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return out, nil
}
