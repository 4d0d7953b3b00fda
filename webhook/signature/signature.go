package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignaturePrefix is the scheme tag GitHub puts in X-Hub-Signature-256.
const SignaturePrefix = "sha256="

/* Verifier checks webhook HMAC signatures against one or more secrets.
 * Supporting a previous secret alongside the primary one lets the secret
 * rotate without a window of rejected deliveries.
 */
type Verifier struct {
	secrets [][]byte
}

// NewVerifier creates a verifier for the primary secret plus any previous
// secrets still within their rotation window. Empty secrets are ignored.
func NewVerifier(secrets ...string) (*Verifier, error) {
	v := &Verifier{}
	for _, s := range secrets {
		if s == "" {
			continue
		}
		v.secrets = append(v.secrets, []byte(s))
	}
	if len(v.secrets) == 0 {
		return nil, fmt.Errorf("at least one non-empty secret is required")
	}
	return v, nil
}

// Verify reports whether header carries a valid HMAC-SHA256 over body.
// A missing or malformed header is a plain false, never an error: the
// caller treats every false identically (reject, log security event).
func (v *Verifier) Verify(body []byte, header string) bool {
	provided, err := decodeHeader(header)
	if err != nil {
		return false
	}

	for _, secret := range v.secrets {
		if subtle.ConstantTimeCompare(provided, Sign(secret, body)) == 1 {
			return true
		}
	}
	return false
}

// Sign computes the raw HMAC-SHA256 digest of body with secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Header renders a digest the way GitHub sends it: sha256=<hex>.
func Header(secret, body []byte) string {
	return SignaturePrefix + hex.EncodeToString(Sign(secret, body))
}

// decodeHeader strips the sha256= prefix and decodes the hex digest.
func decodeHeader(header string) ([]byte, error) {
	normalized := strings.ToLower(strings.TrimSpace(header))
	if !strings.HasPrefix(normalized, SignaturePrefix) {
		return nil, fmt.Errorf("signature header must start with %s", SignaturePrefix)
	}

	digest, err := hex.DecodeString(strings.TrimPrefix(normalized, SignaturePrefix))
	if err != nil {
		return nil, fmt.Errorf("decoding signature hex: %w", err)
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("signature digest must be %d bytes", sha256.Size)
	}
	return digest, nil
}
