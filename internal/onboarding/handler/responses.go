package handler

import (
	"time"

	"satnam/internal/onboarding/models"
)

type CancelRequest struct {
	Confirm bool `json:"confirm"`
}

// SessionResponse is the secret-free view of a session. Ciphertexts,
// salts and card hashes never leave the process.
type SessionResponse struct {
	SessionID    string                `json:"session_id"`
	Mode         string                `json:"mode"`
	Status       string                `json:"status"`
	Cursor       int                   `json:"cursor"`
	CurrentStep  string                `json:"current_step"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type ParticipantResponse struct {
	ParticipantID       string              `json:"participant_id"`
	Name                string              `json:"name"`
	Role                string              `json:"role"`
	Status              string              `json:"status"`
	CurrentStep         string              `json:"current_step"`
	CompletedSteps      []string            `json:"completed_steps"`
	Npub                string              `json:"npub,omitempty"`
	Nip05               string              `json:"nip05,omitempty"`
	Attestation         AttestationResponse `json:"attestation"`
	AttestationAttempts int                 `json:"attestation_attempts"`
}

type AttestationResponse struct {
	OTS        string `json:"ots"`
	NIP03      string `json:"nip03"`
	Federation string `json:"federation"`
	Publish    string `json:"publish"`
	Complete   bool   `json:"complete"`
}

type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Mode         string    `json:"mode"`
	Status       string    `json:"status"`
	Participants int       `json:"participants"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func toSessionResponse(sess models.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:    sess.ID.String(),
		Mode:         string(sess.Mode),
		Status:       string(sess.Status),
		Cursor:       sess.Cursor,
		CurrentStep:  string(sess.CurrentStep()),
		Participants: make([]ParticipantResponse, 0, len(sess.Participants)),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	}
	for _, p := range sess.Participants {
		completed := make([]string, 0, len(p.Progress.CompletedSteps))
		for _, s := range p.Progress.CompletedSteps {
			completed = append(completed, string(s))
		}
		name := p.DisplayName
		if name == "" {
			name = p.TrueName
		}
		resp.Participants = append(resp.Participants, ParticipantResponse{
			ParticipantID:       p.ID.String(),
			Name:                name,
			Role:                p.Role,
			Status:              string(p.Status),
			CurrentStep:         string(p.Progress.CurrentStep),
			CompletedSteps:      completed,
			Npub:                p.Npub,
			Nip05:               p.Nip05,
			Attestation:         toAttestationResponse(p.Attestation),
			AttestationAttempts: p.AttestationAttempts,
		})
	}
	return resp
}

func toAttestationResponse(a models.AttestationProgress) AttestationResponse {
	return AttestationResponse{
		OTS:        string(a.OTS),
		NIP03:      string(a.NIP03),
		Federation: string(a.Federation),
		Publish:    string(a.Publish),
		Complete:   a.IsComplete(),
	}
}

func toSummary(sess models.Session) SessionSummary {
	return SessionSummary{
		SessionID:    sess.ID.String(),
		Mode:         string(sess.Mode),
		Status:       string(sess.Status),
		Participants: len(sess.Participants),
		UpdatedAt:    sess.UpdatedAt,
	}
}
