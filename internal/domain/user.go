package domain

import "time"

// UserProfile is keyed by the authentication provider's uid. Contact fields
// are nullable: a profile is created empty on first login and filled in by
// the user later.
type UserProfile struct {
	UID         string    `json:"uid"`
	Email       *string   `json:"email"`
	DisplayName *string   `json:"displayName"`
	Address     *string   `json:"address"`
	Phone       *string   `json:"phone"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}
