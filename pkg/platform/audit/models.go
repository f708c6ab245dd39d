package audit

import (
	"time"

	id "satnam/pkg/domain"
)

// EventCategory classifies audit events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that prove who was onboarded and how.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers secret handling and failed security checks.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine progress through the wizard.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from onboarding services. It never carries secrets,
// raw card UIDs or PINs.
type Event struct {
	Category      EventCategory     `json:"category"`
	Timestamp     time.Time         `json:"timestamp"`
	SessionID     id.SessionID      `json:"session_id"`
	ParticipantID id.ParticipantID  `json:"participant_id"`
	CoordinatorID id.UserID         `json:"coordinator_id"`
	Action        string            `json:"action"`
	Reason        string            `json:"reason,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

type AuditEvent string

const (
	EventSessionStarted       AuditEvent = "session_started"
	EventSessionPaused        AuditEvent = "session_paused"
	EventSessionResumed       AuditEvent = "session_resumed"
	EventSessionCompleted     AuditEvent = "session_completed"
	EventSessionCancelled     AuditEvent = "session_cancelled"
	EventParticipantAdded     AuditEvent = "participant_added"
	EventStepCompleted        AuditEvent = "step_completed"
	EventCardRegistered       AuditEvent = "card_registered"
	EventWalletProvisioned    AuditEvent = "wallet_provisioned"
	EventAttestationSucceeded AuditEvent = "attestation_succeeded"
	EventAttestationFailed    AuditEvent = "attestation_failed"
	EventSecretsRevealed      AuditEvent = "secrets_revealed"
	EventSecretsWiped         AuditEvent = "secrets_wiped"
	EventDecryptionFailed     AuditEvent = "decryption_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSessionCompleted:     CategoryCompliance,
	EventSessionCancelled:     CategoryCompliance,
	EventParticipantAdded:     CategoryCompliance,
	EventCardRegistered:       CategoryCompliance,
	EventWalletProvisioned:    CategoryCompliance,
	EventAttestationSucceeded: CategoryCompliance,

	EventSecretsRevealed:   CategorySecurity,
	EventSecretsWiped:      CategorySecurity,
	EventDecryptionFailed:  CategorySecurity,
	EventAttestationFailed: CategorySecurity,
}

// Category returns the category for e. Unknown events are operational.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
