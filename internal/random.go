package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	trustedTokenRawSize = 32
	recoveryCodeRawSize = 20
)

// NewToken returns a base64url-encoded random token of n bytes.
func NewToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid token size")
	}

	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewTrustedDeviceToken returns a high-entropy bearer token for MFA bypass.
func NewTrustedDeviceToken() (string, error) {
	return NewToken(trustedTokenRawSize)
}

// NewRecoveryCode returns a one-shot recovery code in grouped base32-like form.
func NewRecoveryCode() (string, error) {
	raw, err := NewToken(recoveryCodeRawSize)
	if err != nil {
		return "", err
	}

	// grouped for manual transcription
	var b strings.Builder
	for i, r := range strings.ToUpper(strings.Map(keepAlnum, raw)) {
		if i > 0 && i%5 == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
		if b.Len() >= 23 {
			break
		}
	}
	return b.String(), nil
}

func keepAlnum(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	default:
		return -1
	}
}

// HashToken returns the hex sha256 of a bearer token. Stores hold only
// the hash so a store dump never yields usable tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewOTP returns a uniformly random numeric code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
