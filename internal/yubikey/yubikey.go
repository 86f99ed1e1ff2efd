// Package yubikey talks to a YubiKey's HMAC-SHA1 challenge-response slot
// through the yubikey-personalization command-line tools. The exchange is
// deterministic: the same challenge always yields the same 20-byte response,
// which is what makes the hardware factor reproducible across unlocks.
package yubikey

import (
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Hussein-Mazeh/aliaser/krypto"
)

const (
	chalrespBinary = "ykchalresp"
	infoBinary     = "ykinfo"
	// Slot 1 usually holds the factory OTP credential; challenge-response
	// lives in slot 2 by convention.
	slot = "-2"
)

// Provider implements krypto.TokenProvider against a physically attached key.
type Provider struct{}

var _ krypto.TokenProvider = Provider{}

// New returns a provider bound to the first attached YubiKey.
func New() Provider {
	return Provider{}
}

// Present probes for an attached key without touching the credential slots.
func (Provider) Present() bool {
	if _, err := exec.LookPath(infoBinary); err != nil {
		return false
	}
	return exec.Command(infoBinary, "-s").Run() == nil
}

// ChallengeResponse sends the challenge to slot 2 and returns the raw
// HMAC-SHA1 response. Blocks until the key answers; keys configured to
// require touch will wait for the user.
func (Provider) ChallengeResponse(challenge []byte) ([]byte, error) {
	if len(challenge) != krypto.ChallengeSize {
		return nil, fmt.Errorf("challenge must be %d bytes", krypto.ChallengeSize)
	}

	out, err := exec.Command(chalrespBinary, slot, "-x", hex.EncodeToString(challenge)).Output()
	if err != nil {
		return nil, fmt.Errorf("challenge-response failed (is the key plugged in and slot 2 configured?): %w", err)
	}

	response, err := hex.DecodeString(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return response, nil
}
