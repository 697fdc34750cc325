package parser

import "fmt"

// Registry dispatches a format name (file extension, no dot) to the
// Parser that handles it.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a Registry with the built-in PDF, DOCX, XLSX, and
// PPTX parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	pdf := &PDFParser{}
	docx := &DOCXParser{}
	xlsx := &XLSXParser{}
	pptx := &PPTXParser{}

	for _, p := range []Parser{pdf, docx, xlsx, pptx} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return p, nil
}

func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}
