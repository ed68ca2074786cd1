package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/text/cases"
)

// ProviderPassword is the users.provider value for email/phone sign-ups.
const ProviderPassword = "password"

// User is a row in the users table. It doubles as the public profile other
// users see in friend lists, share lists and the map.
type User struct {
	ID           string          `db:"id"`
	Provider     string          `db:"provider"`
	Subject      string          `db:"subject"`
	Email        sql.NullString  `db:"email"`
	Phone        sql.NullString  `db:"phone"`
	PasswordHash sql.NullString  `db:"password_hash"`
	DisplayName  string          `db:"display_name"`
	SearchName   string          `db:"search_name"`
	AvatarURL    sql.NullString  `db:"avatar_url"`
	Latitude     sql.NullFloat64 `db:"current_latitude"`
	Longitude    sql.NullFloat64 `db:"current_longitude"`
	Role         string          `db:"role"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// Location returns the user's last reported coordinates, if any.
func (u *User) Location() (lat, lon float64, ok bool) {
	if !u.Latitude.Valid || !u.Longitude.Valid {
		return 0, 0, false
	}
	return u.Latitude.Float64, u.Longitude.Float64, true
}

// FoldName case-folds s for the search_name column and search queries.
func FoldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NewCredentialUser describes a password sign-up. Exactly one of Email and
// Phone identifies the account.
type NewCredentialUser struct {
	Email        string
	Phone        string
	DisplayName  string
	PasswordHash string
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) q(query string) string { return s.db.Rebind(query) }

func roleFor(email, adminEmail string) string {
	if adminEmail != "" && strings.EqualFold(email, adminEmail) {
		return "admin"
	}
	return "user"
}

// Upsert creates or refreshes the user for an OIDC login. The role is only
// assigned on insert, so promotions and demotions survive later logins.
func (s *UserStore) Upsert(ctx context.Context, provider, subject, email, displayName, adminEmail string) (*User, error) {
	now := time.Now().UTC()

	existing, err := s.getBy(ctx, `SELECT * FROM users WHERE provider = ? AND subject = ?`, provider, subject)
	switch {
	case err == nil:
		_, err = s.db.ExecContext(ctx, s.q(`
			UPDATE users SET email = ?, display_name = ?, search_name = ?, updated_at = ?
			WHERE id = ?
		`), nullString(email), displayName, FoldName(displayName), now, existing.ID)
		if err != nil {
			return nil, classifyWrite(err, ErrIdentityTaken)
		}
		return s.GetByID(ctx, existing.ID)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, provider, subject, email, display_name, search_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, provider, subject, nullString(email), displayName, FoldName(displayName), roleFor(email, adminEmail), now, now)
	if err != nil {
		// A concurrent first login for the same subject won the insert.
		if isUniqueConstraintError(err) {
			return s.getBy(ctx, `SELECT * FROM users WHERE provider = ? AND subject = ?`, provider, subject)
		}
		return nil, Classify(err)
	}
	return s.GetByID(ctx, id)
}

// CreateWithPassword registers an email or phone account. A second account
// with the same email or phone fails with ErrIdentityTaken.
func (s *UserStore) CreateWithPassword(ctx context.Context, nu NewCredentialUser, adminEmail string) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	phone := strings.TrimSpace(nu.Phone)
	subject := email
	if subject == "" {
		subject = phone
	}
	if subject == "" || nu.PasswordHash == "" {
		return nil, ErrValidation
	}
	displayName := strings.TrimSpace(nu.DisplayName)
	if displayName == "" {
		displayName = subject
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, provider, subject, email, phone, password_hash, display_name, search_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, ProviderPassword, subject, nullString(email), nullString(phone), nu.PasswordHash,
		displayName, FoldName(displayName), roleFor(email, adminEmail), now, now)
	if err != nil {
		return nil, classifyWrite(err, ErrIdentityTaken)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) getBy(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, s.q(query), args...); err != nil {
		return nil, Classify(err)
	}
	return &u, nil
}

// GetByEmail returns the user matching email, or ErrNotFound.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, `SELECT * FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// GetByPhone returns the user matching phone, or ErrNotFound.
func (s *UserStore) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return s.getBy(ctx, `SELECT * FROM users WHERE phone = ?`, strings.TrimSpace(phone))
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getBy(ctx, `SELECT * FROM users WHERE id = ?`, id)
}

// ListByIDs returns the users whose ids are in ids. Missing ids are skipped,
// so callers merging profiles must tolerate gaps.
func (s *UserStore) ListByIDs(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := in(s.db, `SELECT * FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, Classify(err)
	}
	var users []*User
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, Classify(err)
	}
	return users, nil
}

// ListAll returns all users ordered by display name.
func (s *UserStore) ListAll(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY display_name ASC, id ASC`); err != nil {
		return nil, Classify(err)
	}
	return users, nil
}

// likeEscaper escapes LIKE wildcards using '!' as the escape character,
// which needs no quoting in any supported dialect.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search returns up to limit users whose display name contains q, ignoring
// case. excludeID (usually the caller) is never returned.
func (s *UserStore) Search(ctx context.Context, q, excludeID string, limit int) ([]*User, error) {
	folded := FoldName(q)
	if folded == "" {
		return []*User{}, nil
	}
	pattern := "%" + likeEscaper.Replace(folded) + "%"
	var users []*User
	err := s.db.SelectContext(ctx, &users, s.q(`
		SELECT * FROM users
		WHERE search_name LIKE ? ESCAPE '!' AND id <> ?
		ORDER BY display_name ASC
		LIMIT ?
	`), pattern, excludeID, limit)
	if err != nil {
		return nil, Classify(err)
	}
	return users, nil
}

// UpdateLocation stores the user's current coordinates.
func (s *UserStore) UpdateLocation(ctx context.Context, id string, lat, lon float64) (*User, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoord
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET current_latitude = ?, current_longitude = ?, updated_at = ? WHERE id = ?
	`), lat, lon, time.Now().UTC(), id)
	if err != nil {
		return nil, Classify(err)
	}
	return s.GetByID(ctx, id)
}

// ListWithLocation returns every user that has reported coordinates.
func (s *UserStore) ListWithLocation(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE current_latitude IS NOT NULL AND current_longitude IS NOT NULL
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, Classify(err)
	}
	return users, nil
}

// UpdateRole sets the role for the given user and returns the updated record.
func (s *UserStore) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	if role != "user" && role != "admin" {
		return nil, ErrValidation
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`),
		role, time.Now().UTC(), id)
	if err != nil {
		return nil, Classify(err)
	}
	return s.GetByID(ctx, id)
}
