// internal/membership/domain.go
package membership

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// AnonymousName is shown instead of the name of a ghost-mode user.
	AnonymousName = "Anonymous User"
)

// User is a library account.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Active       bool      `json:"active" db:"active"`
	GhostMode    bool      `json:"ghostMode" db:"ghost_mode"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Session is what a client keeps after logging in.
type Session struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Points    int    `json:"points"`
	IsAdmin   bool   `json:"isAdmin"`
	GhostMode bool   `json:"ghostMode"`
}

// Registered is the public part of a freshly created user.
type Registered struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// UserSummary is a row of the admin user listing.
type UserSummary struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Email     string `json:"email" db:"email"`
	Role      string `json:"role" db:"role"`
	Active    bool   `json:"active" db:"active"`
	GhostMode bool   `json:"ghostMode" db:"ghost_mode"`
	Points    int    `json:"points" db:"points"`
}
