package models

// PhaseStatus is the lifecycle state of one attestation phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseSuccess    PhaseStatus = "success"
	PhaseFailed     PhaseStatus = "failed"
	PhaseSkipped    PhaseStatus = "skipped"
)

// IsTerminal reports whether the phase has resolved.
func (p PhaseStatus) IsTerminal() bool {
	return p == PhaseSuccess || p == PhaseFailed || p == PhaseSkipped
}

// Phase names an attestation phase.
type Phase string

const (
	PhaseOTS        Phase = "ots"
	PhaseNIP03      Phase = "nip03"
	PhaseFederation Phase = "federation"
	PhasePublish    Phase = "publish"
)

// AttestationProgress tracks one pipeline run.
//
// Invariants:
//   - Created at pipeline start with every phase pending
//   - Phases advance in order ots, nip03, federation, publish
//   - Never mutated after the run terminates
type AttestationProgress struct {
	OTS        PhaseStatus `json:"ots"`
	NIP03      PhaseStatus `json:"nip03"`
	Federation PhaseStatus `json:"federation"`
	Publish    PhaseStatus `json:"publish"`
}

// NewAttestationProgress returns a progress record with every phase pending.
func NewAttestationProgress() AttestationProgress {
	return AttestationProgress{
		OTS:        PhasePending,
		NIP03:      PhasePending,
		Federation: PhasePending,
		Publish:    PhasePending,
	}
}

// Set returns a copy with phase set to status.
func (a AttestationProgress) Set(phase Phase, status PhaseStatus) AttestationProgress {
	switch phase {
	case PhaseOTS:
		a.OTS = status
	case PhaseNIP03:
		a.NIP03 = status
	case PhaseFederation:
		a.Federation = status
	case PhasePublish:
		a.Publish = status
	}
	return a
}

// Get returns the status of phase.
func (a AttestationProgress) Get(phase Phase) PhaseStatus {
	switch phase {
	case PhaseOTS:
		return a.OTS
	case PhaseNIP03:
		return a.NIP03
	case PhaseFederation:
		return a.Federation
	case PhasePublish:
		return a.Publish
	}
	return ""
}

// IsComplete is the completion predicate: nip03 succeeded and every other
// phase reached a terminal status.
func (a AttestationProgress) IsComplete() bool {
	return a.NIP03 == PhaseSuccess &&
		a.OTS.IsTerminal() &&
		a.Federation.IsTerminal() &&
		a.Publish.IsTerminal()
}

// AttestationResult collects the outputs each phase hands to the next.
type AttestationResult struct {
	TimestampID          string `json:"timestamp_id,omitempty"`
	OTSProof             string `json:"ots_proof,omitempty"`
	NIP03EventID         string `json:"nip03_event_id,omitempty"`
	RelayCount           int    `json:"relay_count,omitempty"`
	FederationLinked     bool   `json:"federation_linked"`
	AttestationPublished bool   `json:"attestation_published"`
}
