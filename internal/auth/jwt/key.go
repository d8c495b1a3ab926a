package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// HMAC algorithm names accepted by the validator.
const (
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
)

// MinKeyBytes is the smallest accepted key: HS256 needs 256 bits.
const MinKeyBytes = 32

// minKeyBytes maps each HMAC algorithm to the key length it requires.
var minKeyBytes = map[string]int{
	AlgHS256: 32,
	AlgHS384: 48,
	AlgHS512: 64,
}

const redacted = "[REDACTED]"

// SigningKey holds the symmetric key material used to verify token
// signatures. It is immutable after construction and never prints its
// contents.
type SigningKey struct {
	material []byte
}

// NewSigningKey decodes a base64 secret into a SigningKey. Standard and
// URL-safe alphabets, padded or not, are accepted.
func NewSigningKey(secret string) (*SigningKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, NewKeyError("secret is empty", nil)
	}

	material, err := decodeBase64(secret)
	if err != nil {
		return nil, NewKeyError("secret is not valid base64", err)
	}

	return NewSigningKeyFromBytes(material)
}

// NewSigningKeyFromBytes builds a SigningKey from raw key bytes. The bytes
// are copied.
func NewSigningKeyFromBytes(material []byte) (*SigningKey, error) {
	if len(material) < MinKeyBytes {
		return nil, NewKeyError(
			fmt.Sprintf("key is %d bits, at least %d bits are required", len(material)*8, MinKeyBytes*8),
			nil,
		)
	}

	buf := make([]byte, len(material))
	copy(buf, material)
	return &SigningKey{material: buf}, nil
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}

	var errs []error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Len returns the key length in bytes.
func (k *SigningKey) Len() int {
	return len(k.material)
}

// Supports reports whether the key is long enough for the HMAC algorithm.
func (k *SigningKey) Supports(alg string) bool {
	need, ok := minKeyBytes[alg]
	return ok && len(k.material) >= need
}

// SupportedAlgorithms returns the HMAC algorithms the key can verify,
// strongest last.
func (k *SigningKey) SupportedAlgorithms() []string {
	var algs []string
	for _, alg := range []string{AlgHS256, AlgHS384, AlgHS512} {
		if k.Supports(alg) {
			algs = append(algs, alg)
		}
	}
	return algs
}

// String implements fmt.Stringer.
func (k *SigningKey) String() string {
	return redacted
}

// GoString implements fmt.GoStringer.
func (k *SigningKey) GoString() string {
	return redacted
}

// MarshalText keeps the key out of JSON and YAML encodings.
func (k *SigningKey) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
