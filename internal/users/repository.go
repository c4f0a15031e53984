package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/shawarma-timaro/storefront/internal/auth"
	"github.com/shawarma-timaro/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureProfile creates the profile on first login and refreshes it on every
// login after that: lastLoginAt always, email always, displayName only when
// the provider reports a new non-empty one. Contact fields are never touched
// here.
func (r *Repository) EnsureProfile(ctx context.Context, identity auth.Identity) (*domain.UserProfile, error) {
	existing, err := r.GetProfile(ctx, identity.UID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if existing == nil {
		profile := &domain.UserProfile{
			UID:         identity.UID,
			Email:       optional(identity.Email),
			DisplayName: optional(identity.DisplayName),
			CreatedAt:   now,
			LastLoginAt: now,
		}

		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users (uid, email, display_name, address, phone, created_at, last_login_at)
			VALUES ($1, $2, $3, NULL, NULL, $4, $4)
		`, profile.UID, profile.Email, profile.DisplayName, now)
		if err != nil {
			return nil, err
		}

		return profile, nil
	}

	displayName := existing.DisplayName
	if identity.DisplayName != "" && (existing.DisplayName == nil || identity.DisplayName != *existing.DisplayName) {
		displayName = &identity.DisplayName
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE users SET email = $2, display_name = $3, last_login_at = $4
		WHERE uid = $1
	`, identity.UID, optional(identity.Email), displayName, now)
	if err != nil {
		return nil, err
	}

	existing.Email = optional(identity.Email)
	existing.DisplayName = displayName
	existing.LastLoginAt = now
	return existing, nil
}

func (r *Repository) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	profile := &domain.UserProfile{}

	err := r.db.QueryRowContext(ctx, `
		SELECT uid, email, display_name, address, phone, created_at, last_login_at
		FROM users
		WHERE uid = $1
	`, uid).Scan(&profile.UID, &profile.Email, &profile.DisplayName, &profile.Address, &profile.Phone, &profile.CreatedAt, &profile.LastLoginAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return profile, nil
}

// ProfileUpdate carries the fields a user may edit. Identity and the
// timestamp pair are never updatable through this path.
type ProfileUpdate struct {
	DisplayName *string
	Address     *string
	Phone       *string
}

// UpdateProfile merges the allowed fields into the stored profile and
// returns the refreshed record, nil when the uid does not exist. A nil field
// is left untouched; a pointer to the empty string clears the column.
func (r *Repository) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*domain.UserProfile, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			display_name = NULLIF(COALESCE($2, display_name), ''),
			address = NULLIF(COALESCE($3, address), ''),
			phone = NULLIF(COALESCE($4, phone), '')
		WHERE uid = $1
	`, uid, update.DisplayName, update.Address, update.Phone)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetProfile(ctx, uid)
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uid, email, display_name, address, phone, created_at, last_login_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	profiles := []domain.UserProfile{}
	for rows.Next() {
		var profile domain.UserProfile
		if err := rows.Scan(&profile.UID, &profile.Email, &profile.DisplayName, &profile.Address, &profile.Phone, &profile.CreatedAt, &profile.LastLoginAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
