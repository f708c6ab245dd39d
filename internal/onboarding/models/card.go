package models

// CardType is the NFC card family being bound.
type CardType string

const (
	CardNTAG424   CardType = "ntag424"
	CardBoltcard  CardType = "boltcard"
	CardTapsigner CardType = "tapsigner"
)

// IsValid reports whether c is a supported card type.
func (c CardType) IsValid() bool {
	switch c {
	case CardNTAG424, CardBoltcard, CardTapsigner:
		return true
	}
	return false
}

// RequiresPIN reports whether the card type is bound with a PIN.
func (c CardType) RequiresPIN() bool {
	return c == CardNTAG424 || c == CardBoltcard
}

// NFCCardData is the only card material that leaves the registrar.
// It never holds the raw UID or raw PIN.
type NFCCardData struct {
	CardUIDHash string   `json:"cardUidHash"`
	CardType    CardType `json:"cardType"`
	PinHash     string   `json:"pinHash,omitempty"`
	PinSalt     string   `json:"pinSalt,omitempty"`
}
