// internal/frontend/local/store.go

// Package local is a library backend kept in one JSON file, used when no
// API server is available. It applies the same rules as the server.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"librent/internal/circulation"
	"librent/internal/ledger"
	"librent/internal/rewards"
)

type account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	GhostMode    bool      `json:"ghostMode"`
	CreatedAt    time.Time `json:"createdAt"`
}

type bookRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Cover       string `json:"cover,omitempty"`
}

type rentalRecord struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	BookID     int64      `json:"bookId"`
	TierID     int64      `json:"tierId"`
	RentedAt   time.Time  `json:"rentedAt"`
	DueAt      time.Time  `json:"dueAt"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
	Status     string     `json:"status"`
}

type ratingRecord struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"userId"`
	BookID  int64     `json:"bookId"`
	Rating  int       `json:"rating"`
	Comment string    `json:"comment"`
	Public  bool      `json:"public"`
	RatedAt time.Time `json:"ratedAt"`
}

type postRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type voteRecord struct {
	PostID   int64  `json:"postId"`
	UserID   int64  `json:"userId"`
	VoteType string `json:"voteType"`
}

type flagRecord struct {
	UserID    int64     `json:"userId"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// snapshot is everything the store persists.
type snapshot struct {
	Seq         map[string]int64     `json:"seq"`
	Users       []account            `json:"users"`
	Books       []bookRecord         `json:"books"`
	Tiers       []circulation.Tier   `json:"tiers"`
	Rentals     []rentalRecord       `json:"rentals"`
	Ratings     []ratingRecord       `json:"ratings"`
	Points      []ledger.Entry       `json:"points"`
	Posts       []postRecord         `json:"posts"`
	Votes       []voteRecord         `json:"votes"`
	Redemptions []rewards.Redemption `json:"redemptions"`
	Blacklist   []flagRecord         `json:"blacklist"`
	Titles      map[int64]string     `json:"titles"`
}

func (d *snapshot) nextID(kind string) int64 {
	if d.Seq == nil {
		d.Seq = map[string]int64{}
	}
	d.Seq[kind]++
	return d.Seq[kind]
}

// Store implements the client Backend over a snapshot file. Every mutation
// is all-or-nothing: a failed step or a failed save restores the previous
// snapshot.
type Store struct {
	mu   sync.Mutex
	path string
	cost int
	now  func() time.Time
	data snapshot
}

// Open loads the store at path, seeding a new file when none exists. An
// empty path keeps the store in memory.
func Open(path string) (*Store, error) {
	return open(path, bcrypt.DefaultCost, time.Now)
}

func open(path string, cost int, now func() time.Time) (*Store, error) {
	s := &Store{path: path, cost: cost, now: now}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, &s.data); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			return s, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	if err := s.update(context.Background(), s.seed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) view(ctx context.Context, fn func(d *snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func (s *Store) update(ctx context.Context, fn func(d *snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to snapshot store: %w", err)
	}
	if err := fn(&s.data); err != nil {
		s.restore(before)
		return err
	}
	if err := s.save(); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

func (s *Store) restore(raw []byte) {
	var d snapshot
	if err := json.Unmarshal(raw, &d); err == nil {
		s.data = d
	}
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".librent-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
