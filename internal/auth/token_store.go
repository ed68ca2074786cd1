package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/frequency/internal/store"
)

// TokenPrefix marks frequency API tokens.
const TokenPrefix = "fq_"

var errTokenName = fmt.Errorf("%w: token name is required", store.ErrValidation)

// TokenRecord is a row in api_tokens. Only the hash of a token is stored.
type TokenRecord struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Name       string       `db:"name"`
	TokenHash  string       `db:"token_hash"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	ExpiresAt  sql.NullTime `db:"expires_at"`
	CreatedAt  time.Time    `db:"created_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// Usable reports whether the token is neither revoked nor expired at now.
func (t *TokenRecord) Usable(now time.Time) bool {
	if t.RevokedAt.Valid {
		return false
	}
	return !t.ExpiresAt.Valid || t.ExpiresAt.Time.After(now)
}

type TokenStore interface {
	Create(ctx context.Context, userID, name, tokenHash string, expiresAt *time.Time) (*TokenRecord, error)
	GetByHash(ctx context.Context, hash string) (*TokenRecord, error)
	ListByUser(ctx context.Context, userID string) ([]*TokenRecord, error)
	Revoke(ctx context.Context, id, userID string) error
	UpdateLastUsed(ctx context.Context, id string) error
}

// SQLTokenStore keeps tokens in the application database.
type SQLTokenStore struct {
	db *sqlx.DB
}

func NewSQLTokenStore(db *sqlx.DB) *SQLTokenStore {
	return &SQLTokenStore{db: db}
}

func (s *SQLTokenStore) q(query string) string { return s.db.Rebind(query) }

func (s *SQLTokenStore) Create(ctx context.Context, userID, name, tokenHash string, expiresAt *time.Time) (*TokenRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errTokenName
	}
	id := uuid.New().String()

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO api_tokens (id, user_id, name, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), id, userID, name, tokenHash, exp, time.Now().UTC())
	if err != nil {
		return nil, store.Classify(err)
	}
	return s.get(ctx, `SELECT * FROM api_tokens WHERE id = ?`, id)
}

// GetByHash returns the token with the given hash, or store.ErrNotFound.
func (s *SQLTokenStore) GetByHash(ctx context.Context, hash string) (*TokenRecord, error) {
	return s.get(ctx, `SELECT * FROM api_tokens WHERE token_hash = ?`, hash)
}

func (s *SQLTokenStore) get(ctx context.Context, query string, arg any) (*TokenRecord, error) {
	var rec TokenRecord
	if err := s.db.GetContext(ctx, &rec, s.q(query), arg); err != nil {
		return nil, store.Classify(err)
	}
	return &rec, nil
}

// ListByUser returns userID's tokens, newest first, revoked ones included.
func (s *SQLTokenStore) ListByUser(ctx context.Context, userID string) ([]*TokenRecord, error) {
	records := []*TokenRecord{}
	err := s.db.SelectContext(ctx, &records, s.q(`
		SELECT * FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC, id DESC
	`), userID)
	if err != nil {
		return nil, store.Classify(err)
	}
	return records, nil
}

// Revoke marks a token revoked. Tokens belonging to someone else look
// missing. Revoking twice keeps the first revocation time.
func (s *SQLTokenStore) Revoke(ctx context.Context, id, userID string) error {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM api_tokens WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		UPDATE api_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
	`), time.Now().UTC(), id)
	return store.Classify(err)
}

func (s *SQLTokenStore) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`), time.Now().UTC(), id)
	return store.Classify(err)
}

// GenerateToken returns a new plaintext token and the hash to store.
// The plaintext is TokenPrefix followed by 32 random bytes in base62.
func GenerateToken() (plaintext, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	plaintext = TokenPrefix + base62(b)
	return plaintext, HashToken(plaintext), nil
}

func base62(b []byte) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	n := new(big.Int).SetBytes(b)
	base := big.NewInt(62)
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// HashToken returns the hex SHA-256 of a plaintext token.
func HashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
