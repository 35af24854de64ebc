package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/auth"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/errorz"
	"github.com/timeshards/timeshards/internal/krypto"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertUser(ef execFunc, u *auth.User) error {
	if u.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	_, err := ef(
		`INSERT INTO users (id, email, password_hash, nickname, activated_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, string(u.Email), u.PasswordHash.String(), u.Nickname, u.ActivatedAt, u.CreatedAt, u.UpdatedAt,
	)
	return errorz.MapDBErr(err)
}

func updateUser(ef execFunc, u *auth.User) error {
	result, err := ef(
		`UPDATE users
		 SET email = ?, password_hash = ?, nickname = ?, activated_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(u.Email), u.PasswordHash.String(), u.Nickname, u.ActivatedAt, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectUsers(qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	var b strings.Builder
	var params []any

	b.WriteString(`SELECT id, email, password_hash, nickname, activated_at, created_at, updated_at
		FROM users WHERE 1=1 `)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		for _, id := range f.IDs {
			params = append(params, id)
		}
	}

	if len(f.Emails) > 0 {
		b.WriteString(`AND email IN (` + placeholders(len(f.Emails)) + `) `)
		for _, addr := range f.Emails {
			params = append(params, string(addr))
		}
	}

	if f.IsActivated != nil {
		b.WriteString(`AND activated_at IS `)
		if *f.IsActivated {
			b.WriteString(`NOT `)
		}
		b.WriteString(`NULL `)
	}

	b.WriteString(`ORDER BY created_at ASC`)

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var u auth.User
		var addr string
		var activatedAt sql.NullTime

		err := rows.Scan(&u.ID, &addr, &u.PasswordHash, &u.Nickname, &activatedAt, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		// The email column is not re-validated on read, OAuth-originated
		// rows hold a provider user id there.
		u.Email = email.Address(addr)
		if activatedAt.Valid {
			t := activatedAt.Time
			u.ActivatedAt = &t
		}

		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertEmailToken(ef execFunc, tok *auth.EmailToken) error {
	if tok.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	_, err := ef(
		`INSERT INTO email_tokens (id, token, email, purpose, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tok.ID, tok.Token.String(), string(tok.Email), string(tok.Purpose), tok.CreatedAt,
	)
	return errorz.MapDBErr(err)
}

func deleteEmailToken(ef execFunc, id uuid.UUID) error {
	_, err := ef(`DELETE FROM email_tokens WHERE id = ?`, id)
	return errorz.MapDBErr(err)
}

func selectEmailTokens(qf queryFunc, f *auth.EmailTokenFilter) ([]auth.EmailToken, error) {
	var b strings.Builder
	var params []any

	b.WriteString(`SELECT id, token, email, purpose, created_at FROM email_tokens WHERE 1=1 `)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		for _, id := range f.IDs {
			params = append(params, id)
		}
	}

	if len(f.Tokens) > 0 {
		b.WriteString(`AND token IN (` + placeholders(len(f.Tokens)) + `) `)
		for _, tok := range f.Tokens {
			params = append(params, tok.String())
		}
	}

	if len(f.Emails) > 0 {
		b.WriteString(`AND email IN (` + placeholders(len(f.Emails)) + `) `)
		for _, addr := range f.Emails {
			params = append(params, string(addr))
		}
	}

	if len(f.Purposes) > 0 {
		b.WriteString(`AND purpose IN (` + placeholders(len(f.Purposes)) + `) `)
		for _, p := range f.Purposes {
			params = append(params, string(p))
		}
	}

	b.WriteString(`ORDER BY created_at ASC`)

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.EmailToken, 0)
	for rows.Next() {
		var tok auth.EmailToken
		var rawToken, addr, purpose string

		err := rows.Scan(&tok.ID, &rawToken, &addr, &purpose, &tok.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		tok.Token, err = parseStoredToken(rawToken)
		if err != nil {
			return nil, err
		}

		tok.Email = email.Address(addr)
		tok.Purpose = auth.TokenPurpose(purpose)

		out = append(out, tok)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func parseStoredToken(raw string) (krypto.Token, error) {
	tok, err := krypto.ParseToken(raw)
	if err != nil {
		return krypto.Token{}, fmt.Errorf("malformed token in database: %w", err)
	}
	return tok, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
