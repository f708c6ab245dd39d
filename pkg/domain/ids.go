// Package domain holds typed identifiers shared across onboarding packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "satnam/pkg/domain-errors"
)

// Distinct ID types so a participant id can never be passed where a
// session id is expected.
type (
	SessionID     uuid.UUID
	ParticipantID uuid.UUID
	UserID        uuid.UUID
	FederationID  uuid.UUID
)

func (id SessionID) String() string     { return uuid.UUID(id).String() }
func (id ParticipantID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id FederationID) String() string  { return uuid.UUID(id).String() }

func (id SessionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ParticipantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id FederationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func NewSessionID() SessionID         { return SessionID(uuid.New()) }
func NewParticipantID() ParticipantID { return ParticipantID(uuid.New()) }
func NewUserID() UserID               { return UserID(uuid.New()) }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id SessionID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ParticipantID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id FederationID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *SessionID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ParticipantID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FederationID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

// ParseSessionID parses a non-nil session id.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

// ParseParticipantID parses a non-nil participant id.
func ParseParticipantID(s string) (ParticipantID, error) {
	u, err := parseUUID(s, "participant id")
	return ParticipantID(u), err
}

// ParseUserID parses a non-nil user id.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseFederationID parses a non-nil federation id.
func ParseFederationID(s string) (FederationID, error) {
	u, err := parseUUID(s, "federation id")
	return FederationID(u), err
}
