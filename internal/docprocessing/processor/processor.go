package processor

import (
	"context"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
)

// Processor extracts one document type into structured fields.
type Processor interface {
	CanProcess(docType domain.DocumentType) bool

	// Process must not retain data after it returns; the caller zeroes it.
	Process(ctx context.Context, data []byte, docType domain.DocumentType) (*domain.ExtractionResult, error)

	// Name identifies the processor in job results, audit rows and metrics.
	Name() string
}

// Registry orders processors by preference. A document is offered to every
// processor that accepts its type, in registration order, until one succeeds.
type Registry struct {
	processors []Processor
}

func NewRegistry(processors ...Processor) *Registry {
	return &Registry{processors: processors}
}

// FindProcessors returns the fallback chain for docType.
func (r *Registry) FindProcessors(docType domain.DocumentType) []Processor {
	var chain []Processor
	for _, p := range r.processors {
		if p.CanProcess(docType) {
			chain = append(chain, p)
		}
	}
	return chain
}

// Supports reports whether any processor accepts docType.
func (r *Registry) Supports(docType domain.DocumentType) bool {
	return len(r.FindProcessors(docType)) > 0
}

// Coverage maps every supported document type to its processor names, in
// fallback order.
func (r *Registry) Coverage() map[domain.DocumentType][]string {
	out := make(map[domain.DocumentType][]string)
	for _, t := range domain.DocumentTypes {
		for _, p := range r.FindProcessors(t) {
			out[t] = append(out[t], p.Name())
		}
	}
	return out
}
