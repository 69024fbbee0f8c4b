package pipeline

import (
	"context"

	"actflow/internal/validator"
)

// validateResult annotates the result with validation_errors and
// verification_performed.
func (p *Processor) validateResult(_ context.Context, st *State) {
	if len(st.ProcessingResult) == 0 {
		st.Fail("No processing result generated", nil)
		return
	}
	st.ProcessingResult = p.validator.Validate(st.ProcessingResult, validator.Options{
		RequiredFields:      st.Bundle.RequiredFields,
		VerificationEnabled: st.Bundle.VerificationEnabled,
		OutputSchema:        st.Bundle.OutputSchema,
	})
}
