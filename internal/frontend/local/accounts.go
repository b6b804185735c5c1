// internal/frontend/local/accounts.go
package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"librent/internal/apperr"
	"librent/internal/ledger"
	"librent/internal/membership"
)

var (
	errInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid credentials")
	errUserNotFound       = apperr.New(apperr.NotFound, "user not found")
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *snapshot) user(id int64) *account {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *snapshot) userByEmail(email string) *account {
	for i := range d.Users {
		if d.Users[i].Email == email {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *snapshot) balance(userID int64) int {
	total := 0
	for _, e := range d.Points {
		if e.UserID == userID {
			total += e.Quantity
		}
	}
	return total
}

func credit(d *snapshot, userID int64, qty int, reason string, at time.Time) {
	d.Points = append(d.Points, ledger.Entry{
		ID: d.nextID("points"), UserID: userID, Quantity: qty, Reason: reason, CreatedAt: at,
	})
}

// debit withdraws qty when the balance covers it and reports the new balance.
func debit(d *snapshot, userID int64, qty int, reason string, at time.Time) (int, error) {
	if qty < 0 {
		return 0, ledger.ErrInvalidQuantity
	}
	have := d.balance(userID)
	if have < qty {
		return have, ledger.ErrInsufficientPoints
	}
	if qty > 0 {
		credit(d, userID, -qty, reason, at)
	}
	return have - qty, nil
}

func (s *Store) Login(ctx context.Context, email, password string) (*membership.Session, error) {
	var sess *membership.Session
	err := s.view(ctx, func(d *snapshot) error {
		u := d.userByEmail(normalizeEmail(email))
		if u == nil || !u.Active {
			return errInvalidCredentials
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return errInvalidCredentials
		}
		sess = &membership.Session{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Points:    d.balance(u.ID),
			IsAdmin:   u.Role == membership.RoleAdmin,
			GhostMode: u.GhostMode,
		}
		return nil
	})
	return sess, err
}

func (s *Store) Register(ctx context.Context, name, email, password string) (*membership.Registered, error) {
	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "name, email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperr.New(apperr.Validation, "password is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var reg membership.Registered
	err = s.update(ctx, func(d *snapshot) error {
		if d.userByEmail(email) != nil {
			return apperr.New(apperr.Validation, "email already registered")
		}
		u := account{
			ID:           d.nextID("users"),
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         membership.RoleUser,
			Active:       true,
			CreatedAt:    s.now().UTC(),
		}
		d.Users = append(d.Users, u)
		reg = membership.Registered{ID: u.ID, Name: u.Name, Email: u.Email}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *Store) Users(ctx context.Context) ([]membership.UserSummary, error) {
	var out []membership.UserSummary
	err := s.view(ctx, func(d *snapshot) error {
		out = make([]membership.UserSummary, 0, len(d.Users))
		for _, u := range d.Users {
			out = append(out, membership.UserSummary{
				ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
				Active: u.Active, GhostMode: u.GhostMode, Points: d.balance(u.ID),
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// Points is zero for unknown users, as on the server.
func (s *Store) Points(ctx context.Context, userID int64) (int, error) {
	var points int
	err := s.view(ctx, func(d *snapshot) error {
		points = d.balance(userID)
		return nil
	})
	return points, err
}

// PointsHistory lists the user's entries, newest first.
func (s *Store) PointsHistory(ctx context.Context, userID int64) ([]ledger.Entry, error) {
	out := []ledger.Entry{}
	err := s.view(ctx, func(d *snapshot) error {
		for _, e := range d.Points {
			if e.UserID == userID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (s *Store) ToggleGhost(ctx context.Context, userID int64) (bool, error) {
	var ghost bool
	err := s.update(ctx, func(d *snapshot) error {
		u := d.user(userID)
		if u == nil {
			return errUserNotFound
		}
		u.GhostMode = !u.GhostMode
		ghost = u.GhostMode
		return nil
	})
	return ghost, err
}

// displayName masks ghost-mode users.
func (d *snapshot) displayName(userID int64) string {
	u := d.user(userID)
	switch {
	case u == nil:
		return ""
	case u.GhostMode:
		return membership.AnonymousName
	}
	return u.Name
}
