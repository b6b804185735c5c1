// internal/frontend/backend.go
package frontend

import (
	"context"

	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/feed"
	"librent/internal/ledger"
	"librent/internal/membership"
	"librent/internal/rankings"
	"librent/internal/rewards"
)

// Backend defines the interface the client app needs from the library,
// served either by the HTTP API or by a local store.
type Backend interface {
	Login(ctx context.Context, email, password string) (*membership.Session, error)
	Register(ctx context.Context, name, email, password string) (*membership.Registered, error)
	Users(ctx context.Context) ([]membership.UserSummary, error)
	Points(ctx context.Context, userID int64) (int, error)
	PointsHistory(ctx context.Context, userID int64) ([]ledger.Entry, error)
	ToggleGhost(ctx context.Context, userID int64) (bool, error)

	Books(ctx context.Context) ([]catalog.Book, error)
	GetBook(ctx context.Context, id int64) (*catalog.Book, error)
	SearchBooks(ctx context.Context, query string) ([]catalog.Book, error)
	AddBook(ctx context.Context, in catalog.NewBook) (*catalog.Book, error)
	BookRatings(ctx context.Context, bookID int64) ([]catalog.Rating, error)
	Rate(ctx context.Context, in catalog.RateInput) (*catalog.RateResult, error)

	Tiers(ctx context.Context) ([]circulation.Tier, error)
	UserRentals(ctx context.Context, userID int64) ([]circulation.Rental, error)
	AllRentals(ctx context.Context) ([]circulation.AdminRental, error)
	CreateRental(ctx context.Context, in circulation.CreateInput) (*circulation.Rental, error)
	ReturnRental(ctx context.Context, rentalID, userID int64) (*circulation.ReturnResult, error)

	Rankings(ctx context.Context) (*rankings.Rankings, error)
	Blacklist(ctx context.Context) ([]rankings.BlacklistEntry, error)
	FlagUser(ctx context.Context, userID int64) error
	ClearUser(ctx context.Context, userID int64) error

	Redeem(ctx context.Context, userID int64, rewardType string, cost int) (*rewards.Result, error)
	UserRedemptions(ctx context.Context, userID int64) ([]rewards.Redemption, error)

	Posts(ctx context.Context) ([]feed.Post, error)
	CreatePost(ctx context.Context, userID int64, content string) (*feed.Post, error)
	Vote(ctx context.Context, postID, userID int64, voteType string) (*feed.Tally, error)
	UserVotes(ctx context.Context, userID int64) (map[int64]string, error)
}
