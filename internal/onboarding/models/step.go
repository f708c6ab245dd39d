package models

// StepID identifies one wizard step for a participant.
type StepID string

const (
	StepIntake      StepID = "intake"
	StepIdentity    StepID = "identity"
	StepPassword    StepID = "password"
	StepMigration   StepID = "migration"
	StepNFC         StepID = "nfc"
	StepLightning   StepID = "lightning"
	StepKeet        StepID = "keet"
	StepBackup      StepID = "backup"
	StepAttestation StepID = "attestation"
	StepComplete    StepID = "complete"
)

// StepDef describes a step's position and whether it applies to a participant.
// A nil Applies means the step always applies.
type StepDef struct {
	ID      StepID
	Applies func(p *ParticipantRecord) bool
}

var stepTable = []StepDef{
	{ID: StepIntake},
	{ID: StepIdentity},
	{ID: StepPassword},
	{ID: StepMigration, Applies: func(p *ParticipantRecord) bool {
		return p != nil && p.ExistingNostrAccount
	}},
	{ID: StepNFC},
	{ID: StepLightning},
	{ID: StepKeet},
	{ID: StepBackup},
	{ID: StepAttestation},
	{ID: StepComplete},
}

// Steps returns the ordered step list.
func Steps() []StepID {
	out := make([]StepID, len(stepTable))
	for i, d := range stepTable {
		out[i] = d.ID
	}
	return out
}

// IsValid reports whether s is a member of the step list.
func (s StepID) IsValid() bool {
	return s.index() >= 0
}

func (s StepID) index() int {
	for i, d := range stepTable {
		if d.ID == s {
			return i
		}
	}
	return -1
}

// AppliesTo reports whether the step is part of p's flow.
func (s StepID) AppliesTo(p *ParticipantRecord) bool {
	i := s.index()
	if i < 0 {
		return false
	}
	if a := stepTable[i].Applies; a != nil {
		return a(p)
	}
	return true
}

// NextOf returns the next applicable step after s for p. The final step
// has no successor and returns itself with ok=false.
func NextOf(s StepID, p *ParticipantRecord) (StepID, bool) {
	i := s.index()
	if i < 0 {
		return s, false
	}
	for j := i + 1; j < len(stepTable); j++ {
		if stepTable[j].ID.AppliesTo(p) {
			return stepTable[j].ID, true
		}
	}
	return s, false
}

// PreviousOf returns the previous applicable step before s for p.
func PreviousOf(s StepID, p *ParticipantRecord) (StepID, bool) {
	i := s.index()
	for j := i - 1; j >= 0; j-- {
		if stepTable[j].ID.AppliesTo(p) {
			return stepTable[j].ID, true
		}
	}
	return s, false
}

// StepSet is an ordered set of completed steps. It only grows until Reset.
type StepSet []StepID

// Has reports membership.
func (ss StepSet) Has(s StepID) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// With returns the set including s, kept in step order.
func (ss StepSet) With(s StepID) StepSet {
	if ss.Has(s) {
		return ss
	}
	out := make(StepSet, 0, len(ss)+1)
	inserted := false
	for _, x := range ss {
		if !inserted && s.index() < x.index() {
			out = append(out, s)
			inserted = true
		}
		out = append(out, x)
	}
	if !inserted {
		out = append(out, s)
	}
	return out
}
