// Package nostrid validates Nostr identifiers used during onboarding:
// NIP-19 npub/nsec strings, NIP-05 addresses and relay URLs.
package nostrid

import (
	"regexp"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	dErrors "satnam/pkg/domain-errors"
)

var nip05Pattern = regexp.MustCompile(`^[a-z0-9._-]+@[a-z0-9-]+(\.[a-z0-9-]+)*\.[a-z]{2,}$`)

// DecodeNpub returns the hex public key behind a bech32 npub.
func DecodeNpub(npub string) (string, error) {
	prefix, value, err := nip19.Decode(strings.TrimSpace(npub))
	if err != nil || prefix != "npub" {
		return "", dErrors.New(dErrors.CodeValidation, "npub is not a valid NIP-19 public key")
	}
	pk, ok := value.(string)
	if !ok || len(pk) != 64 {
		return "", dErrors.New(dErrors.CodeValidation, "npub is not a valid NIP-19 public key")
	}
	return pk, nil
}

// ParseNip05 splits and lower-cases a NIP-05 identifier.
func ParseNip05(s string) (local, domain string, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !nip05Pattern.MatchString(s) {
		return "", "", dErrors.New(dErrors.CodeValidation, "NIP-05 identifier must look like name@domain.tld")
	}
	at := strings.LastIndexByte(s, '@')
	return s[:at], s[at+1:], nil
}

// VerifyKeyPair checks that nsec is the private key for npub. The nsec is
// accepted as bytes so callers can wipe their copy afterwards.
func VerifyKeyPair(nsec []byte, npub string) error {
	wantPK, err := DecodeNpub(npub)
	if err != nil {
		return err
	}
	sk, err := decodeNsec(nsec)
	if err != nil {
		return err
	}
	gotPK, err := nostr.GetPublicKey(sk)
	if err != nil || gotPK != wantPK {
		return dErrors.New(dErrors.CodeValidation, "private key does not match the participant's npub")
	}
	return nil
}

// GenerateKeyPair creates a fresh identity. The returned nsec is owned by the
// caller.
func GenerateKeyPair() (nsec []byte, npub string, err error) {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive public key")
	}
	encodedSK, err := nip19.EncodePrivateKey(sk)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode private key")
	}
	npub, err = nip19.EncodePublicKey(pk)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode public key")
	}
	return []byte(encodedSK), npub, nil
}

// SecretKeyHex decodes a bech32 nsec to the hex form relay clients sign with.
func SecretKeyHex(nsec []byte) (string, error) {
	return decodeNsec(nsec)
}

func decodeNsec(nsec []byte) (string, error) {
	prefix, value, err := nip19.Decode(strings.TrimSpace(string(nsec)))
	if err != nil || prefix != "nsec" {
		return "", dErrors.New(dErrors.CodeValidation, "nsec is not a valid NIP-19 private key")
	}
	sk, ok := value.(string)
	if !ok || len(sk) != 64 {
		return "", dErrors.New(dErrors.CodeValidation, "nsec is not a valid NIP-19 private key")
	}
	return sk, nil
}

// NormalizeRelays validates and normalizes relay URLs. Only wss:// relays
// are accepted; duplicates are dropped.
func NormalizeRelays(urls []string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(u), "wss://") || !nostr.IsValidRelayURL(u) {
			return nil, dErrors.New(dErrors.CodeValidation, "relay URL must be a valid wss:// URL: "+u)
		}
		n := nostr.NormalizeURL(u)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
