package krypto

import (
	"encoding/hex"
	"errors"
	"log/slog"
)

const (
	// tokenLen is the number of random bytes in a token. The hex
	// representation is twice this length, so 40 characters. The 40
	// character form is what ends up in emails and URLs.
	tokenLen = 20
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random token that is sent via email. It proves control of
// an email address (account activation) or authorizes a password change
// (password reset).
//
// Tokens are single use, the store deletes them when they are consumed.
type Token [tokenLen]byte

// GenerateToken creates a new random token.
func GenerateToken() (Token, error) {
	b, err := genRandomBytes(tokenLen)
	if err != nil {
		return [tokenLen]byte{}, err
	}
	return [tokenLen]byte(b), nil
}

// ParseToken parses a token from its string representation.
func ParseToken(raw string) (Token, error) {
	if len(raw) != tokenLen*2 {
		return [tokenLen]byte{}, ErrInvalidToken
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return [tokenLen]byte{}, ErrInvalidToken
	}

	return [tokenLen]byte(b), nil
}

// String returns the string representation of the token. Unlike a
// Password this is allowed, we need to embed tokens in emails.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

func (t *Token) UnmarshalText(text []byte) error {
	tok, err := ParseToken(string(text))
	if err != nil {
		return err
	}

	*t = tok

	return nil
}

// LogValue implements the slog.Valuer interface. Tokens are credentials
// and should not end up in logs.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
