package store

import (
	"context"
	"strings"
	"time"
)

// User is an account row.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Roles        []string
	Active       bool
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, roles []string) (int64, error) {
	return s.InsertID(ctx, s.DB,
		`INSERT INTO users (email, password_hash, roles) VALUES ($1, $2, $3) RETURNING id`,
		email, passwordHash, strings.Join(roles, ","))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row, err := s.QueryRow(ctx, s.DB,
		"SELECT id, email, password_hash, roles, active FROM users WHERE email = $1", email)
	if err != nil {
		return nil, err
	}
	return userFromRow(row), nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	row, err := s.QueryRow(ctx, s.DB,
		"SELECT id, email, password_hash, roles, active FROM users WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return userFromRow(row), nil
}

func userFromRow(row map[string]any) *User {
	return &User{
		ID:           asInt64(row["id"]),
		Email:        asString(row["email"]),
		PasswordHash: asString(row["password_hash"]),
		Roles:        splitRoles(asString(row["roles"])),
		Active:       asBool(row["active"]),
	}
}

func splitRoles(s string) []string {
	roles := []string{}
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// asBool reads a BOOLEAN column; SQLite stores it as INTEGER.
func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	}
	return false
}

// RefreshToken is a stored opaque refresh token joined with its user.
type RefreshToken struct {
	ID        int64
	UserID    int64
	ExpiresAt time.Time
	Roles     []string
	Active    bool
}

func (s *Store) CreateRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := s.Exec(ctx, s.DB,
		`INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
		userID, token, expiresAt.Unix())
	return err
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	row, err := s.QueryRow(ctx, s.DB,
		`SELECT rt.id, rt.user_id, rt.expires_at, u.roles, u.active
		 FROM refresh_tokens rt
		 JOIN users u ON u.id = rt.user_id
		 WHERE rt.token = $1`, token)
	if err != nil {
		return nil, err
	}
	return &RefreshToken{
		ID:        asInt64(row["id"]),
		UserID:    asInt64(row["user_id"]),
		ExpiresAt: *unixTime(row["expires_at"]),
		Roles:     splitRoles(asString(row["roles"])),
		Active:    asBool(row["active"]),
	}, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := s.Exec(ctx, s.DB, "DELETE FROM refresh_tokens WHERE token = $1", token)
	return err
}
