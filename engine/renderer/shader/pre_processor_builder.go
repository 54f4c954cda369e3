package shader

// PreProcessorBuilderOption is a functional option for NewPreProcessor.
type PreProcessorBuilderOption func(p *preProcessor)

// WithSnippet registers a snippet, replacing an embedded one of the same name.
//
// Parameters:
//   - name: the name include annotations refer to
//   - source: the WGSL text, which may itself contain annotations
//
// Returns:
//   - PreProcessorBuilderOption: functional option to register the snippet
func WithSnippet(name, source string) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.snippets[name] = source
	}
}
