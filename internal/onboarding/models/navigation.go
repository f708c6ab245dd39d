package models

import (
	"time"

	dErrors "satnam/pkg/domain-errors"
)

// CanGoTo allows a jump to s iff s is completed or is the step right after
// the current one.
func (p *ParticipantRecord) CanGoTo(s StepID) error {
	if !s.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown step "+string(s))
	}
	if p.Progress.CompletedSteps.Has(s) {
		return nil
	}
	if next, ok := NextOf(p.Progress.CurrentStep, p); ok && next == s {
		return nil
	}
	return dErrors.New(dErrors.CodeInvalidState, "step "+string(s)+" is not reachable yet")
}

// ApplyGoTo moves the step pointer. Call CanGoTo first.
func (p *ParticipantRecord) ApplyGoTo(s StepID, now time.Time) {
	p.Progress.CurrentStep = s
	p.UpdatedAt = now
}

// CanAdvance requires the current step to be completed and not final.
func (p *ParticipantRecord) CanAdvance() (StepID, error) {
	cur := p.Progress.CurrentStep
	if !p.Progress.CompletedSteps.Has(cur) {
		return cur, dErrors.New(dErrors.CodeInvalidState, "step "+string(cur)+" is not completed")
	}
	next, ok := NextOf(cur, p)
	if !ok {
		return cur, dErrors.New(dErrors.CodeInvalidState, "already at the final step")
	}
	return next, nil
}

// CanRetreat returns the previous applicable step.
func (p *ParticipantRecord) CanRetreat() (StepID, error) {
	prev, ok := PreviousOf(p.Progress.CurrentStep, p)
	if !ok {
		return p.Progress.CurrentStep, dErrors.New(dErrors.CodeInvalidState, "already at the first step")
	}
	return prev, nil
}

// CanCompleteStep requires s to be the current step.
func (p *ParticipantRecord) CanCompleteStep(s StepID) error {
	if !s.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown step "+string(s))
	}
	if p.Progress.CurrentStep != s {
		return dErrors.New(dErrors.CodeInvalidState,
			"cannot complete "+string(s)+" while on "+string(p.Progress.CurrentStep))
	}
	return nil
}

// ApplyStepCompleted marks s completed and moves to the next applicable step.
func (p *ParticipantRecord) ApplyStepCompleted(s StepID, now time.Time) {
	p.Progress.CompletedSteps = p.Progress.CompletedSteps.With(s)
	if next, ok := NextOf(s, p); ok {
		p.Progress.CurrentStep = next
	}
	if p.Status == ParticipantPending {
		p.Status = ParticipantInProgress
	}
	p.UpdatedAt = now
}
