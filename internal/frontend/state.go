// internal/frontend/state.go
package frontend

import (
	"sort"
	"strings"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/feed"
	"librent/internal/membership"
	"librent/internal/rankings"
	"librent/internal/rewards"
)

// connectionError is shown when a failure carries no client-facing message.
const connectionError = "could not reach the library, please try again"

// State is the client view model. Values are never modified in place:
// every action returns a new State, and slices and maps held by a State
// must be treated as read-only.
type State struct {
	User      *membership.Session
	Books     []catalog.Book
	Rentals   []circulation.Rental
	Points    int
	Votes     map[int64]string
	Posts     []feed.Post
	Rankings  rankings.Rankings
	Blacklist []rankings.BlacklistEntry
	Notice    string
}

// RewardOption is an entry of the rewards menu.
type RewardOption struct {
	Type  string
	Title string
	Cost  int
}

// RewardMenu lists what a reader can redeem points for.
var RewardMenu = []RewardOption{
	{Type: rewards.GhostMode, Title: "Ghost mode (toggle)", Cost: 150},
	{Type: rewards.ExtraRental, Title: "Extra rental", Cost: 300},
	{Type: rewards.TitleOfFame, Title: "Title: " + rewards.FameTitle, Cost: 500},
	{Type: rewards.ExpertTier, Title: "Expert tier upgrade", Cost: 1000},
}

// LookupReward finds a menu entry by reward type.
func LookupReward(rewardType string) (RewardOption, bool) {
	for _, o := range RewardMenu {
		if o.Type == rewardType {
			return o, true
		}
	}
	return RewardOption{}, false
}

// FilterBooks returns the loaded books whose title or author contains term and
// whose category equals category, ignoring case. Empty arguments match all.
func (s State) FilterBooks(term, category string) []catalog.Book {
	category = strings.TrimSpace(category)
	out := []catalog.Book{}
	for _, b := range s.Books {
		if b.Matches(term) && (category == "" || strings.EqualFold(b.Category, category)) {
			out = append(out, b)
		}
	}
	return out
}

// Categories lists the distinct categories of the loaded books, sorted.
func (s State) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range s.Books {
		if b.Category != "" && !seen[b.Category] {
			seen[b.Category] = true
			out = append(out, b.Category)
		}
	}
	sort.Strings(out)
	return out
}

func (s State) LoggedIn() bool { return s.User != nil }

func (s State) IsAdmin() bool { return s.User != nil && s.User.IsAdmin }

// WithNotice returns a copy of s carrying msg for display.
func (s State) WithNotice(msg string) State {
	s.Notice = msg
	return s
}

// WithUser returns a fresh state for a newly logged-in user.
func (s State) WithUser(u membership.Session) State {
	return State{User: &u, Points: u.Points, Books: s.Books, Posts: s.Posts, Rankings: s.Rankings}
}

// WithPoints returns a copy of s whose balance and session agree on points.
func (s State) WithPoints(points int) State {
	s.Points = points
	if s.User != nil {
		u := *s.User
		u.Points = points
		s.User = &u
	}
	return s
}

// WithGhost returns a copy of s with the session's ghost flag set.
func (s State) WithGhost(ghost bool) State {
	if s.User != nil {
		u := *s.User
		u.GhostMode = ghost
		s.User = &u
	}
	return s
}

// Book finds a book of the current listing.
func (s State) Book(id int64) (catalog.Book, bool) {
	for _, b := range s.Books {
		if b.ID == id {
			return b, true
		}
	}
	return catalog.Book{}, false
}

// OpenRental is the user's unreturned rental of bookID, if any.
func (s State) OpenRental(bookID int64) (circulation.Rental, bool) {
	for _, r := range s.Rentals {
		if r.BookID == bookID && r.ReturnDate == nil {
			return r, true
		}
	}
	return circulation.Rental{}, false
}

// Rental finds one of the user's rentals by id.
func (s State) Rental(id int64) (circulation.Rental, bool) {
	for _, r := range s.Rentals {
		if r.ID == id {
			return r, true
		}
	}
	return circulation.Rental{}, false
}

// CanRent checks the listing before a rental is sent to the backend.
func (s State) CanRent(bookID int64) error {
	b, ok := s.Book(bookID)
	if !ok {
		return apperr.New(apperr.NotFound, "book not found")
	}
	if _, holding := s.OpenRental(bookID); holding {
		return apperr.Newf(apperr.Conflict, "you already have %q", b.Title)
	}
	if !b.Available() {
		return apperr.Newf(apperr.Conflict, "%q is not available right now", b.Title)
	}
	return nil
}

// VoteOn is the user's current vote on a post, "" when none.
func (s State) VoteOn(postID int64) string {
	return s.Votes[postID]
}

// NoticeFor turns an error into the text shown to the user.
func NoticeFor(err error) string {
	return apperr.MessageOf(err, connectionError)
}

func (s State) fail(err error) (State, error) {
	return s.WithNotice(NoticeFor(err)), err
}
