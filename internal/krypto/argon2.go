package krypto

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32

	// Parameters recommended by RFC 9106 for memory-constrained
	// environments: 46 MiB memory, 1 iteration.
	argonMemoryKiB   = 47104
	argonIterations  = 1
	argonParallelism = 1

	argonVariant = "argon2id"
)

var ErrInvalidInput = errors.New("invalid input")

// Argon2Hash is an argon2id hash with the parameters that were used to
// create it. Keeping the parameters with the hash allows them to evolve
// without invalidating stored credentials.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes raw using the argon2id variant with a random salt.
func HashArgon2(raw []byte) (Argon2Hash, error) {
	if len(raw) == 0 {
		return Argon2Hash{}, fmt.Errorf("refusing to hash empty input: %w", ErrInvalidInput)
	}

	salt, err := genRandomBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	hash := argon2.IDKey(raw, salt, argonIterations, argonMemoryKiB, argonParallelism, keyLen)

	return Argon2Hash{
		Variant:     argonVariant,
		Version:     argon2.Version,
		MemoryKiB:   argonMemoryKiB,
		Iterations:  argonIterations,
		Parallelism: argonParallelism,
		Salt:        salt,
		Hash:        hash,
	}, nil
}

// ParseArgon2Hash parses a hash in the standard encoded representation:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<base64 salt>$<base64 hash>
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 hash: %w", ErrInvalidInput)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if h.Variant != argonVariant {
		return Argon2Hash{}, fmt.Errorf("unsupported argon2 variant %q: %w", h.Variant, ErrInvalidInput)
	}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &h.Version); err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 version: %w", ErrInvalidInput)
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("unsupported argon2 version %d: %w", h.Version, ErrInvalidInput)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism); err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 parameters: %w", ErrInvalidInput)
	}

	var err error
	h.Salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 salt: %w", ErrInvalidInput)
	}

	h.Hash, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 hash bytes: %w", ErrInvalidInput)
	}

	return h, nil
}

// String returns the hash in the standard encoded representation.
func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

// MatchBytes checks if raw hashes to the same value using the
// parameters stored with the hash. The comparison is constant time.
func (h Argon2Hash) MatchBytes(raw []byte) bool {
	other := argon2.IDKey(raw, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

// Scan implements the sql.Scanner interface, hashes are persisted in
// their encoded string representation.
func (h *Argon2Hash) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}

	parsed, err := ParseArgon2Hash(raw)
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}
