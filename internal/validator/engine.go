package validator

import (
	"fmt"
	"log/slog"

	"actflow/internal/jsonmap"
	"actflow/internal/logging"
)

// Result keys written by the engine.
const (
	KeyValidationErrors      = "validation_errors"
	KeyVerificationPerformed = "verification_performed"
)

// Engine runs every applicable registered rule against a result.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

// NewEngine creates a validation engine. A nil registry selects DefaultRegistry.
func NewEngine(registry *Registry, logger *slog.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{registry: registry, logger: logger}
}

// Validate returns a shallow copy of result carrying validation_errors and
// verification_performed. The input map is not modified.
func (e *Engine) Validate(result map[string]any, opts Options) map[string]any {
	data := DataView(result)

	problems := make([]string, 0)
	for _, rule := range e.registry.All() {
		if !rule.Applies(opts) {
			continue
		}
		problems = append(problems, e.run(rule, data, opts)...)
	}

	out := make(map[string]any, len(result)+2)
	for k, v := range result {
		out[k] = v
	}
	out[KeyValidationErrors] = problems
	out[KeyVerificationPerformed] = opts.VerificationEnabled

	if len(problems) > 0 {
		e.logger.Info("validator.Engine: result has problems", "count", len(problems))
	}
	return out
}

func (e *Engine) run(rule Rule, data map[string]any, opts Options) (problems []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("validator.Engine: rule panicked", "rule", rule.RuleKey(), "panic", r)
			problems = []string{fmt.Sprintf("Verification error: %v", r)}
		}
	}()
	return rule.Check(data, opts)
}

// DataView returns aggregated_data when the result has that shape, else the
// result itself.
func DataView(result map[string]any) map[string]any {
	if agg := jsonmap.GetMap(result, "aggregated_data"); agg != nil {
		return agg
	}
	return result
}
