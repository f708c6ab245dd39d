package backend

// Wire shapes for the onboarding backend. Field names follow the backend's
// JSON contract, which mixes camelCase requests with snake_case responses.

type CardRegisterRequest struct {
	ParticipantID string `json:"participantId"`
	CardUIDHash   string `json:"cardUidHash"`
	CardType      string `json:"cardType"`
	PinHash       string `json:"pinHash,omitempty"`
	PinSalt       string `json:"pinSalt,omitempty"`
}

type LightningSetupRequest struct {
	ParticipantID            string `json:"participantId"`
	SetupMode                string `json:"setupMode"`
	LightningAddress         string `json:"lightningAddress,omitempty"`
	NWCConnectionString      string `json:"nwcConnectionString,omitempty"`
	ExternalLightningAddress string `json:"externalLightningAddress,omitempty"`
	ScrubEnabled             bool   `json:"scrubEnabled"`
	ScrubPercent             int    `json:"scrubPercent"`
}

type LightningSetupResponse struct {
	LightningAddress string `json:"lightningAddress,omitempty"`
}

type TimestampRequest struct {
	Data           string            `json:"data"`
	VerificationID string            `json:"verificationId"`
	EventType      string            `json:"eventType"`
	Metadata       map[string]string `json:"metadata"`
}

type TimestampResponse struct {
	ID           string `json:"id"`
	OTSProof     string `json:"ots_proof"`
	BitcoinBlock *int64 `json:"bitcoin_block,omitempty"`
}

type NIP03AttestationRequest struct {
	ParticipantID          string   `json:"participantId"`
	Npub                   string   `json:"npub"`
	Nip05                  string   `json:"nip05"`
	SimpleproofTimestampID string   `json:"simpleproofTimestampId,omitempty"`
	OTSProof               string   `json:"otsProof,omitempty"`
	EventType              string   `json:"eventType"`
	RelayURLs              []string `json:"relayUrls"`
}

type NIP03AttestationResponse struct {
	NIP03EventID string `json:"nip03_event_id"`
	RelayCount   int    `json:"relay_count"`
}

type LinkFederationRequest struct {
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	FederationID  string `json:"federationId"`
	Role          string `json:"role"`
	SessionID     string `json:"sessionId"`
}

type PublishCoordinatorAttestationRequest struct {
	ParticipantNpub  string            `json:"participantNpub"`
	ParticipantNip05 string            `json:"participantNip05"`
	FederationID     string            `json:"federationId"`
	SessionID        string            `json:"sessionId"`
	NIP03EventID     string            `json:"nip03EventId"`
	Metadata         map[string]string `json:"metadata"`
}

// errorBody covers the error shapes the backend is known to return.
type errorBody struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}
