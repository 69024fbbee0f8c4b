// Package postprocess applies processor-type specific refinement to
// pipeline results.
package postprocess

import (
	"actflow/internal/domain"
)

// Refiner refines a pipeline result. Implementations must not modify their input.
type Refiner interface {
	Refine(result map[string]any) map[string]any
	// DefaultBundle is used when a file type carries no prompts of its own.
	DefaultBundle() domain.PromptBundle
}

// Registry maps processor types to refiners.
type Registry struct {
	refiners map[domain.ProcessorType]Refiner
	fallback Refiner
}

// NewRegistry creates a registry where every type passes results through.
func NewRegistry() *Registry {
	return &Registry{
		refiners: make(map[domain.ProcessorType]Refiner),
		fallback: Passthrough{},
	}
}

// DefaultRegistry registers the Huawei act refiner for HUAWEI_ACT.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.ProcessorTypeHuaweiAct, HuaweiRefiner{})
	return r
}

// Register adds or replaces the refiner for t.
func (r *Registry) Register(t domain.ProcessorType, refiner Refiner) {
	r.refiners[t] = refiner
}

// Get returns the refiner for t, or the passthrough refiner.
func (r *Registry) Get(t domain.ProcessorType) Refiner {
	if refiner, ok := r.refiners[t]; ok {
		return refiner
	}
	return r.fallback
}

// Refine looks up the refiner for t and applies it.
func (r *Registry) Refine(t domain.ProcessorType, result map[string]any) map[string]any {
	return r.Get(t).Refine(result)
}

// Passthrough returns results unchanged.
type Passthrough struct{}

func (Passthrough) Refine(result map[string]any) map[string]any { return result }

func (Passthrough) DefaultBundle() domain.PromptBundle {
	return domain.PromptBundle{
		SystemPrompt:     "You are a document processing assistant. Extract key information from the document and return it in structured JSON format.",
		ExtractionPrompt: "Extract all key fields from this document. Return the data as valid JSON.",
		RequiredFields:   []string{},
	}
}
