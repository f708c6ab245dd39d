package models

// WalletMode selects how the participant's Lightning wallet is provisioned.
type WalletMode string

const (
	WalletAuto     WalletMode = "auto"
	WalletExternal WalletMode = "external"
)

// LightningWalletConfig is the validated wallet request. In external mode
// NWCConnectionString holds ciphertext once the provisioner has sealed it.
type LightningWalletConfig struct {
	Mode                     WalletMode `json:"mode"`
	LightningAddress         string     `json:"lightning_address,omitempty"`
	NWCConnectionString      string     `json:"nwc_connection_string,omitempty"`
	NWCSalt                  string     `json:"nwc_salt,omitempty"`
	ExternalLightningAddress string     `json:"external_lightning_address,omitempty"`
	ScrubEnabled             bool       `json:"scrub_enabled"`
	ScrubPercent             int        `json:"scrub_percent"`
}
