package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/timeshards/timeshards/internal/krypto"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 16
)

var ErrInvalidPassword = fmt.Errorf("invalid password")

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// There are only three operations allowed on a Password:
// - Converting it to a hash.
// - Comparing it with an existing hash to see if they match.
// - Comparing it with another Password (confirmation fields).
type Password struct {
	plain []byte
}

// ParsePassword creates a new Password from a plaintext string.
// Passwords are 6 to 16 characters from a restricted set: letters,
// digits, dashes and underscores.
func ParsePassword(pwd string) (Password, error) {
	if len(pwd) < minPasswordLen || len(pwd) > maxPasswordLen {
		return Password{}, ErrInvalidPassword
	}

	for _, c := range pwd {
		if !validPasswordRune(c) {
			return Password{}, ErrInvalidPassword
		}
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

func validPasswordRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Match checks if the plaintext password matches the given hash.
func (p Password) Match(h krypto.Argon2Hash) bool {
	return h.MatchBytes(p.plain)
}

// Hash hashes the plaintext password using the argon2id algorithm.
func (p Password) Hash() (krypto.Argon2Hash, error) {
	return krypto.HashArgon2(p.plain)
}

// Equal checks if two passwords are the same in constant time. Used to
// compare a password with its confirmation field.
func (p Password) Equal(other Password) bool {
	return subtle.ConstantTimeCompare(p.plain, other.plain) == 1
}

func (p *Password) UnmarshalText(text []byte) error {
	pwd, err := ParsePassword(string(text))
	if err != nil {
		return err
	}

	*p = pwd

	return nil
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(krypto.SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(krypto.SecretMarker), nil
}
