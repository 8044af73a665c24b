// Package password hashes and verifies user passwords with argon2id,
// encoded in PHC string format so parameters travel with the hash.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8
	algorithmID           = "argon2id"
)

// ErrPasswordTooShort is an exported constant or variable used by the authentication engine.
var ErrPasswordTooShort = errors.New("password below minimum length")

// ErrMalformedHash is an exported constant or variable used by the authentication engine.
var ErrMalformedHash = errors.New("malformed password hash")

// Params defines a public type used by authcore APIs.
//
// Params instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Params struct {
	Memory      uint32 // KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher defines a public type used by authcore APIs.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	params Params
}

// NewHasher describes the newhasher operation and its observable behavior.
//
// NewHasher may return an error when input validation, dependency calls, or security checks fail.
func NewHasher(p Params) (*Hasher, error) {
	switch {
	case p.Memory < minMemoryKB:
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	case p.Time < minTimeCost:
		return nil, errors.New("argon2 time must be >= 1")
	case p.Parallelism < minParallelism:
		return nil, errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return nil, errors.New("argon2 salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return nil, errors.New("argon2 key length must be >= 16")
	}

	return &Hasher{params: p}, nil
}

// Hash describes the hash operation and its observable behavior.
//
// Hash may return an error when input validation, dependency calls, or security checks fail.
// Hash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Hasher) Hash(password string) (string, error) {
	// Raw string bytes as provided, no Unicode normalization.
	if len(password) < minPassBytes {
		return "", ErrPasswordTooShort
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	parsed, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))

	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

// NeedsRehash reports whether a stored hash was produced with weaker
// parameters than currently configured.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	parsed, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	if h.params.Memory > parsed.memory || h.params.Time > parsed.time || h.params.Parallelism > parsed.parallelism {
		return true, nil
	}
	if uint32(len(parsed.key)) != h.params.KeyLength {
		return true, nil
	}
	return false, nil
}

type phcFields struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodePHC(encoded string) (*phcFields, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrMalformedHash
	}

	var f phcFields
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &f.memory, &f.time, &f.parallelism); err != nil {
		return nil, ErrMalformedHash
	}
	if f.memory < minMemoryKB || f.time < minTimeCost || f.parallelism < minParallelism {
		return nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < int(minKeyLength) {
		return nil, ErrMalformedHash
	}

	f.salt = salt
	f.key = key
	return &f, nil
}
