package models

import (
	"time"

	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

// ParticipantStatus tracks a participant through the flow.
type ParticipantStatus string

const (
	ParticipantPending    ParticipantStatus = "pending"
	ParticipantInProgress ParticipantStatus = "in_progress"
	ParticipantAttested   ParticipantStatus = "attested"
	ParticipantCompleted  ParticipantStatus = "completed"
)

// Progress is a participant's own step pointer. Moving the queue cursor
// never resets it.
type Progress struct {
	CurrentStep    StepID  `json:"current_step"`
	CompletedSteps StepSet `json:"completed_steps"`
}

// ParticipantRecord is everything the flow persists about one participant.
//
// Invariants:
//   - Secrets appear only as ciphertext plus salt
//   - Created at intake and never deleted while the session lives
//   - Progress.CurrentStep is always a member of the step list
type ParticipantRecord struct {
	ID                   id.ParticipantID  `json:"participant_id"`
	TrueName             string            `json:"true_name"`
	DisplayName          string            `json:"display_name,omitempty"`
	Role                 string            `json:"role"`
	Status               ParticipantStatus `json:"status"`
	UserID               id.UserID         `json:"user_id"`
	FederationID         id.FederationID   `json:"federation_id"`
	ExistingNostrAccount bool              `json:"existing_nostr_account"`

	Npub  string `json:"npub,omitempty"`
	Nip05 string `json:"nip05,omitempty"`

	EncryptedNsec     string `json:"encrypted_nsec,omitempty"`
	NsecSalt          string `json:"nsec_salt,omitempty"`
	EncryptedKeetSeed string `json:"encrypted_keet_seed,omitempty"`
	KeetSeedSalt      string `json:"keet_seed_salt,omitempty"`

	CardUIDHash string   `json:"card_uid_hash,omitempty"`
	CardType    CardType `json:"card_type,omitempty"`

	Wallet *LightningWalletConfig `json:"wallet,omitempty"`

	BackupAcknowledged bool `json:"backup_acknowledged"`

	Attestation          AttestationProgress `json:"attestation"`
	AttestationAttempts  int                 `json:"attestation_attempts"`
	TimestampID          string              `json:"timestamp_id,omitempty"`
	OTSProof             string              `json:"ots_proof,omitempty"`
	NIP03EventID         string              `json:"nip03_event_id,omitempty"`
	FederationLinked     bool                `json:"federation_linked"`
	AttestationPublished bool                `json:"attestation_published"`

	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Intake is the data collected when a participant joins the queue.
type Intake struct {
	TrueName             string
	DisplayName          string
	Role                 string
	FederationID         id.FederationID
	ExistingNostrAccount bool
}

// NewParticipant builds a record with intake already completed.
func NewParticipant(pid id.ParticipantID, in Intake, now time.Time) (*ParticipantRecord, error) {
	if in.TrueName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "true name is required")
	}
	if len(in.TrueName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "true name must be 128 characters or less")
	}
	if len(in.DisplayName) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 64 characters or less")
	}
	role := in.Role
	if role == "" {
		role = "adult"
	}
	p := &ParticipantRecord{
		ID:                   pid,
		TrueName:             in.TrueName,
		DisplayName:          in.DisplayName,
		Role:                 role,
		Status:               ParticipantPending,
		UserID:               id.NewUserID(),
		FederationID:         in.FederationID,
		ExistingNostrAccount: in.ExistingNostrAccount,
		Attestation:          NewAttestationProgress(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	next, _ := NextOf(StepIntake, p)
	p.Progress = Progress{CurrentStep: next, CompletedSteps: StepSet{StepIntake}}
	return p, nil
}

// HasFederation reports whether the participant joins a federation.
func (p *ParticipantRecord) HasFederation() bool {
	return !p.FederationID.IsNil()
}

// NameForAddress is the source for an auto-provisioned Lightning address:
// the display name, else the NIP-05 local part, else the true name.
func (p *ParticipantRecord) NameForAddress() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Nip05 != "" {
		for i := 0; i < len(p.Nip05); i++ {
			if p.Nip05[i] == '@' {
				return p.Nip05[:i]
			}
		}
		return p.Nip05
	}
	return p.TrueName
}

// ApplyAttestation records a finished pipeline run.
func (p *ParticipantRecord) ApplyAttestation(progress AttestationProgress, res AttestationResult, now time.Time) {
	p.Attestation = progress
	p.TimestampID = res.TimestampID
	p.OTSProof = res.OTSProof
	p.NIP03EventID = res.NIP03EventID
	p.FederationLinked = res.FederationLinked
	p.AttestationPublished = res.AttestationPublished
	if progress.IsComplete() {
		p.Status = ParticipantAttested
	}
	p.UpdatedAt = now
}

// Clone returns a deep copy.
func (p *ParticipantRecord) Clone() *ParticipantRecord {
	if p == nil {
		return nil
	}
	c := *p
	c.Progress.CompletedSteps = append(StepSet(nil), p.Progress.CompletedSteps...)
	if p.Wallet != nil {
		w := *p.Wallet
		c.Wallet = &w
	}
	return &c
}
