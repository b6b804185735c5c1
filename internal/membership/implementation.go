// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"librent/internal/apperr"
	"librent/internal/database"
	"librent/internal/ledger"
)

var errInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid credentials")

// service implements the Service interface.
type service struct {
	db     *sqlx.DB
	ledger *ledger.Ledger
	log    *slog.Logger
}

// NewService creates a new membership service instance.
func NewService(db *sqlx.DB, l *ledger.Ledger, log *slog.Logger) Service {
	return &service{db: db, ledger: l, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies the credentials of an active user and returns its session.
func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, name, email, password_hash, role, active, ghost_mode, created_at
		FROM users
		WHERE email = $1 AND active = TRUE
	`, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := verifyPassword(password, u.PasswordHash)
	if err != nil {
		s.log.WarnContext(ctx, "unverifiable password hash", slog.Int64("user_id", u.ID), slog.Any("err", err))
		return nil, errInvalidCredentials
	}
	if !ok {
		return nil, errInvalidCredentials
	}

	points, err := ledger.Balance(ctx, s.db, u.ID)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Points:    points,
		IsAdmin:   u.Role == RoleAdmin,
		GhostMode: u.GhostMode,
	}, nil
}

// Register creates a user together with its zero balance row.
func (s *service) Register(ctx context.Context, name, email, password string) (*Registered, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	var reg Registered
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &reg, `
			INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING id, name, email
		`, strings.TrimSpace(name), normalizeEmail(email), hash, RoleUser)
		if database.IsUniqueViolation(err) {
			return apperr.New(apperr.Validation, "email already registered")
		}
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return s.ledger.Open(ctx, tx, reg.ID)
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// EnsureAdmin creates the bootstrap admin if no user owns the email yet.
func (s *service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id, `
			INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO NOTHING
			RETURNING id
		`, name, normalizeEmail(email), hash, RoleAdmin)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to insert admin: %w", err)
		}
		s.log.InfoContext(ctx, "bootstrap admin created", slog.Int64("user_id", id))
		return s.ledger.Open(ctx, tx, id)
	})
}

// ListUsers returns every account with its balance, ordered by id.
func (s *service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users := []UserSummary{}
	err := s.db.SelectContext(ctx, &users, `
		SELECT u.id, u.name, u.email, u.role, u.active, u.ghost_mode,
		       COALESCE(b.total, 0) AS points
		FROM users u
		LEFT JOIN point_balances b ON b.user_id = u.id
		ORDER BY u.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Points returns the balance, zero for users without a balance row.
func (s *service) Points(ctx context.Context, userID int64) (int, error) {
	return ledger.Balance(ctx, s.db, userID)
}

func (s *service) PointsHistory(ctx context.Context, userID int64) ([]ledger.Entry, error) {
	return ledger.History(ctx, s.db, userID)
}

// ToggleGhost flips the ghost mode flag and returns the new value.
func (s *service) ToggleGhost(ctx context.Context, userID int64) (bool, error) {
	var ghost bool
	err := s.db.GetContext(ctx, &ghost, `
		UPDATE users SET ghost_mode = NOT ghost_mode WHERE id = $1 RETURNING ghost_mode
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle ghost mode: %w", err)
	}
	return ghost, nil
}
