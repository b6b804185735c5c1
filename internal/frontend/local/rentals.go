// internal/frontend/local/rentals.go
package local

import (
	"context"
	"fmt"
	"sort"
	"time"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/membership"
	"librent/internal/rankings"
)

const adminRentalLimit = 100

func (d *snapshot) tier(id int64) circulation.Tier {
	for _, t := range d.Tiers {
		if t.ID == id {
			return t
		}
	}
	return circulation.Tier{}
}

func (d *snapshot) rentalView(r rentalRecord) circulation.Rental {
	v := circulation.Rental{
		ID:         r.ID,
		BookID:     r.BookID,
		UserID:     r.UserID,
		RentalDate: r.RentedAt,
		DueDate:    r.DueAt,
		ReturnDate: r.ReturnedAt,
		Tier:       d.tier(r.TierID).Name,
		Status:     r.Status,
	}
	if b := d.book(r.BookID); b != nil {
		v.Title = b.Title
	}
	return v
}

func newestFirst(rs []rentalRecord) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RentedAt.Equal(rs[j].RentedAt) {
			return rs[i].RentedAt.After(rs[j].RentedAt)
		}
		return rs[i].ID > rs[j].ID
	})
}

// refreshOverdue flips active rentals past due and flags their users. It
// reports how many rentals flipped.
func refreshOverdue(d *snapshot, now time.Time) int {
	flipped := 0
	for i := range d.Rentals {
		r := &d.Rentals[i]
		if r.Status != circulation.StatusActive || !r.DueAt.Before(now) {
			continue
		}
		r.Status = circulation.StatusOverdue
		flipped++
		if !d.flagged(r.UserID) {
			d.Blacklist = append(d.Blacklist, flagRecord{UserID: r.UserID, Active: true, CreatedAt: now})
		}
	}
	return flipped
}

func (d *snapshot) flagged(userID int64) bool {
	for _, f := range d.Blacklist {
		if f.UserID == userID && f.Active {
			return true
		}
	}
	return false
}

func (s *Store) Tiers(ctx context.Context) ([]circulation.Tier, error) {
	var out []circulation.Tier
	err := s.view(ctx, func(d *snapshot) error {
		out = append([]circulation.Tier(nil), d.Tiers...)
		return nil
	})
	return out, err
}

// FlagUser puts the user on the blacklist; flagging twice is a no-op.
func (s *Store) FlagUser(ctx context.Context, userID int64) error {
	return s.update(ctx, func(d *snapshot) error {
		if d.user(userID) == nil {
			return errUserNotFound
		}
		if !d.flagged(userID) {
			d.Blacklist = append(d.Blacklist, flagRecord{UserID: userID, Active: true, CreatedAt: s.now().UTC()})
		}
		return nil
	})
}

// ClearUser deactivates the user's blacklist entry.
func (s *Store) ClearUser(ctx context.Context, userID int64) error {
	return s.update(ctx, func(d *snapshot) error {
		cleared := false
		for i := range d.Blacklist {
			if d.Blacklist[i].UserID == userID && d.Blacklist[i].Active {
				d.Blacklist[i].Active = false
				cleared = true
			}
		}
		if !cleared {
			return apperr.New(apperr.NotFound, "user is not blacklisted")
		}
		return nil
	})
}

// RefreshOverdue runs the overdue pass at now.
func (s *Store) RefreshOverdue(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.update(ctx, func(d *snapshot) error {
		n = refreshOverdue(d, now)
		return nil
	})
	return n, err
}

func (s *Store) CreateRental(ctx context.Context, in circulation.CreateInput) (*circulation.Rental, error) {
	if in.Days < 0 {
		return nil, apperr.New(apperr.Validation, "days must not be negative")
	}

	var out circulation.Rental
	err := s.update(ctx, func(d *snapshot) error {
		if d.book(in.BookID) == nil {
			return errBookNotFound
		}
		if u := d.user(in.UserID); u == nil || !u.Active {
			return errUserNotFound
		}
		if d.rented(in.BookID) >= catalog.CopiesPerTitle {
			return apperr.New(apperr.Conflict, "no copies available")
		}
		tier, ok := circulation.ResolveTier(d.Tiers, in.Days)
		if !ok {
			return fmt.Errorf("default tier %d is not seeded", circulation.DefaultTierID)
		}

		start := s.now().UTC()
		r := rentalRecord{
			ID:       d.nextID("rentals"),
			UserID:   in.UserID,
			BookID:   in.BookID,
			TierID:   tier.ID,
			RentedAt: start,
			DueAt:    circulation.DueDate(start, tier),
			Status:   circulation.StatusActive,
		}
		d.Rentals = append(d.Rentals, r)
		out = d.rentalView(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReturnRental closes a rental, crediting the owner when it is on time. A
// non-zero userID must be the owner.
func (s *Store) ReturnRental(ctx context.Context, rentalID, userID int64) (*circulation.ReturnResult, error) {
	res := &circulation.ReturnResult{Message: "book returned"}
	err := s.update(ctx, func(d *snapshot) error {
		var r *rentalRecord
		for i := range d.Rentals {
			if d.Rentals[i].ID == rentalID {
				r = &d.Rentals[i]
				break
			}
		}
		switch {
		case r == nil:
			return apperr.New(apperr.NotFound, "rental not found")
		case userID != 0 && r.UserID != userID:
			return apperr.New(apperr.Forbidden, "rental belongs to another user")
		case r.ReturnedAt != nil:
			return apperr.New(apperr.Conflict, "rental already returned")
		}

		returned := s.now().UTC()
		r.ReturnedAt = &returned
		r.Status = circulation.StatusReturned
		if circulation.OnTime(returned, r.DueAt) {
			credit(d, r.UserID, circulation.ReturnBonus, fmt.Sprintf("on-time return: rental #%d", r.ID), returned)
			res.PointsAwarded = circulation.ReturnBonus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) UserRentals(ctx context.Context, userID int64) ([]circulation.Rental, error) {
	out := []circulation.Rental{}
	err := s.update(ctx, func(d *snapshot) error {
		refreshOverdue(d, s.now().UTC())
		var mine []rentalRecord
		for _, r := range d.Rentals {
			if r.UserID == userID {
				mine = append(mine, r)
			}
		}
		newestFirst(mine)
		for _, r := range mine {
			out = append(out, d.rentalView(r))
		}
		return nil
	})
	return out, err
}

// AllRentals lists the most recent rentals of every user.
func (s *Store) AllRentals(ctx context.Context) ([]circulation.AdminRental, error) {
	out := []circulation.AdminRental{}
	err := s.update(ctx, func(d *snapshot) error {
		refreshOverdue(d, s.now().UTC())
		all := append([]rentalRecord(nil), d.Rentals...)
		newestFirst(all)
		if len(all) > adminRentalLimit {
			all = all[:adminRentalLimit]
		}
		for _, r := range all {
			v := circulation.AdminRental{Rental: d.rentalView(r)}
			if u := d.user(r.UserID); u != nil {
				v.UserName, v.UserEmail = u.Name, u.Email
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func dateOf(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Blacklist joins flagged users with their overdue rentals, most overdue
// first.
func (s *Store) Blacklist(ctx context.Context) ([]rankings.BlacklistEntry, error) {
	out := []rankings.BlacklistEntry{}
	err := s.update(ctx, func(d *snapshot) error {
		now := s.now().UTC()
		refreshOverdue(d, now)

		var late []rentalRecord
		for _, r := range d.Rentals {
			if r.Status == circulation.StatusOverdue && d.flagged(r.UserID) {
				late = append(late, r)
			}
		}
		sort.Slice(late, func(i, j int) bool {
			if !late[i].DueAt.Equal(late[j].DueAt) {
				return late[i].DueAt.Before(late[j].DueAt)
			}
			return late[i].ID < late[j].ID
		})

		today := dateOf(now)
		for _, r := range late {
			e := rankings.BlacklistEntry{UserID: r.UserID, RentalDate: r.RentedAt, DueDate: r.DueAt}
			if u := d.user(r.UserID); u != nil {
				e.Name, e.Email = u.Name, u.Email
			}
			if b := d.book(r.BookID); b != nil {
				e.BookTitle = b.Title
			}
			e.DaysLate = max(int(today.Sub(dateOf(r.DueAt)).Hours()/24), 0)
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Rankings computes the leaderboards; ties go to the lowest id.
func (s *Store) Rankings(ctx context.Context) (*rankings.Rankings, error) {
	r := rankings.Empty()
	err := s.view(ctx, func(d *snapshot) error {
		found := false
		for _, u := range d.Users {
			if u.Role != membership.RoleUser {
				continue
			}
			p := d.balance(u.ID)
			if !found || p > r.TopUser.Points || (p == r.TopUser.Points && u.ID < r.TopUser.ID) {
				r.TopUser = rankings.TopUser{ID: u.ID, Name: u.Name, Points: p, Title: d.Titles[u.ID]}
				found = true
			}
		}

		rentals := map[int64]int{}
		for _, rt := range d.Rentals {
			rentals[rt.BookID]++
		}
		for _, b := range d.Books {
			n := rentals[b.ID]
			if n == 0 {
				continue
			}
			if n > r.MostRead.Total || (n == r.MostRead.Total && b.ID < r.MostRead.BookID) {
				r.MostRead = rankings.MostRead{BookID: b.ID, Title: b.Title, Total: n}
			}
		}

		for _, b := range d.Books {
			v := d.bookView(b)
			if v.RatingCount == 0 {
				continue
			}
			avg := v.AverageRating()
			best := r.TopRated.Count > 0
			if !best || avg > r.TopRated.AvgRating || (avg == r.TopRated.AvgRating && b.ID < r.TopRated.BookID) {
				r.TopRated = rankings.TopRated{BookID: b.ID, Title: b.Title, AvgRating: avg, Count: v.RatingCount}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}
