// internal/frontend/app.go
package frontend

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/feed"
	"librent/internal/ledger"
	"librent/internal/membership"
	"librent/internal/rewards"
)

var (
	errLoginRequired = apperr.New(apperr.Unauthorized, "please log in first")
	errAdminOnly     = apperr.New(apperr.Forbidden, "admin access required")
)

// App runs user actions against a Backend. Every mutation is followed by a
// full re-fetch; nothing is patched optimistically.
type App struct {
	backend Backend
}

func NewApp(b Backend) *App {
	return &App{backend: b}
}

// Refresh re-fetches everything visible in s.
func (a *App) Refresh(ctx context.Context, s State) (State, error) {
	books, err := a.backend.Books(ctx)
	if err != nil {
		return s.fail(err)
	}
	posts, err := a.backend.Posts(ctx)
	if err != nil {
		return s.fail(err)
	}
	rk, err := a.backend.Rankings(ctx)
	if err != nil {
		return s.fail(err)
	}

	next := State{User: s.User, Books: books, Posts: posts, Rankings: *rk, Notice: s.Notice}
	if s.User == nil {
		return next, nil
	}

	uid := s.User.ID
	if next.Rentals, err = a.backend.UserRentals(ctx, uid); err != nil {
		return s.fail(err)
	}
	if next.Votes, err = a.backend.UserVotes(ctx, uid); err != nil {
		return s.fail(err)
	}
	points, err := a.backend.Points(ctx, uid)
	if err != nil {
		return s.fail(err)
	}
	next = next.WithPoints(points)

	if s.User.IsAdmin {
		if next.Blacklist, err = a.backend.Blacklist(ctx); err != nil {
			return s.fail(err)
		}
	}
	return next, nil
}

func (a *App) Login(ctx context.Context, s State, email, password string) (State, error) {
	sess, err := a.backend.Login(ctx, email, password)
	if err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s.WithUser(*sess))
	if err != nil {
		return next, err
	}
	return next.WithNotice("welcome, " + sess.Name), nil
}

// Register creates the account and logs it in.
func (a *App) Register(ctx context.Context, s State, name, email, password string) (State, error) {
	if _, err := a.backend.Register(ctx, name, email, password); err != nil {
		return s.fail(err)
	}
	return a.Login(ctx, s, email, password)
}

func (a *App) Logout(s State) State {
	return State{Books: s.Books, Posts: s.Posts, Rankings: s.Rankings, Notice: "logged out"}
}

func (a *App) Rent(ctx context.Context, s State, bookID int64, days int) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	if err := s.CanRent(bookID); err != nil {
		return s.fail(err)
	}
	tiers, err := a.backend.Tiers(ctx)
	if err != nil {
		return s.fail(err)
	}
	if !offersDays(tiers, days) {
		return s.fail(apperr.Newf(apperr.Validation, "rentals last %s days", tierDays(tiers)))
	}
	r, err := a.backend.CreateRental(ctx, circulation.CreateInput{BookID: bookID, UserID: s.User.ID, Days: days})
	if err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	return next.WithNotice(fmt.Sprintf("rented %q (%s) until %s", r.Title, r.Tier, r.DueDate.Format("2006-01-02"))), nil
}

// Return closes one of the user's open rentals.
func (a *App) Return(ctx context.Context, s State, rentalID int64) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	r, ok := s.Rental(rentalID)
	if !ok {
		return s.fail(apperr.New(apperr.NotFound, "rental not found"))
	}
	if r.ReturnDate != nil {
		return s.fail(apperr.Newf(apperr.Conflict, "%q was already returned", r.Title))
	}
	res, err := a.backend.ReturnRental(ctx, rentalID, s.User.ID)
	if err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	if res.PointsAwarded > 0 {
		return next.WithNotice(fmt.Sprintf("returned %q on time, +%d points", r.Title, res.PointsAwarded)), nil
	}
	return next.WithNotice(fmt.Sprintf("returned %q late, no points awarded", r.Title)), nil
}

func (a *App) Rate(ctx context.Context, s State, bookID int64, rating int, comment string, public *bool) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	if rating < 1 || rating > 5 {
		return s.fail(apperr.New(apperr.Validation, "rating must be between 1 and 5"))
	}
	res, err := a.backend.Rate(ctx, catalog.RateInput{
		BookID: bookID, UserID: s.User.ID, Rating: rating, Comment: comment, Public: public,
	})
	if err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	msg := res.Message
	if res.PointsAwarded > 0 {
		msg = fmt.Sprintf("%s, +%d points", msg, res.PointsAwarded)
	}
	return next.WithNotice(msg), nil
}

func (a *App) Post(ctx context.Context, s State, content string) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return s.fail(apperr.New(apperr.Validation, "post content is required"))
	}
	if _, err := a.backend.CreatePost(ctx, s.User.ID, content); err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	return next.WithNotice("posted"), nil
}

func (a *App) Vote(ctx context.Context, s State, postID int64, voteType string) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	if !feed.ValidVote(voteType) {
		return s.fail(apperr.Newf(apperr.Validation, "vote must be %q or %q", feed.Like, feed.Dislike))
	}
	if _, err := a.backend.Vote(ctx, postID, s.User.ID, voteType); err != nil {
		return s.fail(err)
	}
	return a.Refresh(ctx, s)
}

// Redeem spends points on a menu reward. The balance check is left to the
// backend so its message reaches the user.
func (a *App) Redeem(ctx context.Context, s State, rewardType string) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	opt, ok := LookupReward(rewardType)
	if !ok {
		return s.fail(apperr.Newf(apperr.Validation, "unknown reward %q", rewardType))
	}
	res, err := a.backend.Redeem(ctx, s.User.ID, opt.Type, opt.Cost)
	if err != nil {
		return s.fail(err)
	}
	if opt.Type == rewards.GhostMode {
		s = s.WithGhost(!s.User.GhostMode)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	return next.WithNotice(res.Message), nil
}

func (a *App) ToggleGhost(ctx context.Context, s State) (State, error) {
	if !s.LoggedIn() {
		return s.fail(errLoginRequired)
	}
	ghost, err := a.backend.ToggleGhost(ctx, s.User.ID)
	if err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s.WithGhost(ghost))
	if err != nil {
		return next, err
	}
	if ghost {
		return next.WithNotice("ghost mode on"), nil
	}
	return next.WithNotice("ghost mode off"), nil
}

// BookDetail fetches a book's visible ratings.
func (a *App) BookDetail(ctx context.Context, s State, bookID int64) (catalog.Book, []catalog.Rating, error) {
	b, ok := s.Book(bookID)
	if !ok {
		fetched, err := a.backend.GetBook(ctx, bookID)
		if err != nil {
			return catalog.Book{}, nil, err
		}
		b = *fetched
	}
	ratings, err := a.backend.BookRatings(ctx, bookID)
	if err != nil {
		return b, nil, err
	}
	return b, ratings, nil
}

func (a *App) Redemptions(ctx context.Context, s State) ([]rewards.Redemption, error) {
	if !s.LoggedIn() {
		return nil, errLoginRequired
	}
	return a.backend.UserRedemptions(ctx, s.User.ID)
}

// AdminUsers lists every account for an admin session.
func (a *App) AdminUsers(ctx context.Context, s State) ([]membership.UserSummary, error) {
	if !s.IsAdmin() {
		return nil, errAdminOnly
	}
	return a.backend.Users(ctx)
}

// AdminRentals lists recent rentals of all users for an admin session.
func (a *App) AdminRentals(ctx context.Context, s State) ([]circulation.AdminRental, error) {
	if !s.IsAdmin() {
		return nil, errAdminOnly
	}
	return a.backend.AllRentals(ctx)
}

// Search asks the backend for books matching query.
func (a *App) Search(ctx context.Context, query string) ([]catalog.Book, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.Validation, "search query is required")
	}
	return a.backend.SearchBooks(ctx, query)
}

func (a *App) Tiers(ctx context.Context) ([]circulation.Tier, error) {
	return a.backend.Tiers(ctx)
}

// PointsHistory lists the ledger entries of the logged-in user, newest first.
func (a *App) PointsHistory(ctx context.Context, s State) ([]ledger.Entry, error) {
	if !s.LoggedIn() {
		return nil, errLoginRequired
	}
	return a.backend.PointsHistory(ctx, s.User.ID)
}

// AddBook adds a title to the catalog for an admin session.
func (a *App) AddBook(ctx context.Context, s State, in catalog.NewBook) (State, error) {
	if !s.IsAdmin() {
		return s.fail(errAdminOnly)
	}
	b, err := a.backend.AddBook(ctx, in)
	if err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	return next.WithNotice(fmt.Sprintf("added %q as book #%d", b.Title, b.ID)), nil
}

// FlagUser blacklists a user for an admin session.
func (a *App) FlagUser(ctx context.Context, s State, userID int64) (State, error) {
	if !s.IsAdmin() {
		return s.fail(errAdminOnly)
	}
	if err := a.backend.FlagUser(ctx, userID); err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	return next.WithNotice(fmt.Sprintf("user #%d flagged", userID)), nil
}

// ClearUser lifts a user's blacklist entry for an admin session.
func (a *App) ClearUser(ctx context.Context, s State, userID int64) (State, error) {
	if !s.IsAdmin() {
		return s.fail(errAdminOnly)
	}
	if err := a.backend.ClearUser(ctx, userID); err != nil {
		return s.fail(err)
	}
	next, err := a.Refresh(ctx, s)
	if err != nil {
		return next, err
	}
	return next.WithNotice(fmt.Sprintf("user #%d cleared", userID)), nil
}

func offersDays(tiers []circulation.Tier, days int) bool {
	for _, t := range tiers {
		if t.DurationDays == days {
			return true
		}
	}
	return false
}

// tierDays renders the tier durations as "15, 30 or 60".
func tierDays(tiers []circulation.Tier) string {
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = strconv.Itoa(t.DurationDays)
	}
	if len(parts) < 2 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " or " + parts[len(parts)-1]
}
