package secrets

import (
	"strings"

	"github.com/tyler-smith/go-bip39"

	dErrors "satnam/pkg/domain-errors"
)

const keetEntropyBits = 256

// GenerateKeetSeed returns a fresh 24-word BIP-39 phrase owned by the caller.
func GenerateKeetSeed() ([]byte, error) {
	entropy, err := bip39.NewEntropy(keetEntropyBits)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate seed entropy")
	}
	defer wipe(entropy)
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode seed phrase")
	}
	return []byte(mnemonic), nil
}

// ValidateKeetSeed checks a 24-word phrase with a valid checksum.
func ValidateKeetSeed(seed []byte) error {
	phrase := strings.Join(strings.Fields(string(seed)), " ")
	if len(strings.Fields(phrase)) != 24 || !bip39.IsMnemonicValid(phrase) {
		return dErrors.New(dErrors.CodeValidation, "Keet seed must be a valid 24-word phrase")
	}
	return nil
}
