// internal/clients/api_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/feed"
	"librent/internal/ledger"
	"librent/internal/membership"
	"librent/internal/rankings"
	"librent/internal/rewards"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Msg)
}

// Code maps the status back to an application error code.
func (e *APIError) Code() apperr.Code {
	switch e.Status {
	case http.StatusBadRequest:
		return apperr.Validation
	case http.StatusUnauthorized:
		return apperr.Unauthorized
	case http.StatusForbidden:
		return apperr.Forbidden
	case http.StatusNotFound:
		return apperr.NotFound
	case http.StatusConflict:
		return apperr.Conflict
	case http.StatusTooManyRequests:
		return apperr.RateLimited
	}
	return apperr.Internal
}

// Message is the server-provided error text.
func (e *APIError) Message() string { return e.Msg }

// APIClient talks to the library API over HTTP. Calls fail fast while the
// breaker is open after repeated server or transport failures.
type APIClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewAPIClient returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "librent-api",
			MaxRequests: 1,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				var apiErr *APIError
				return err == nil || (errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError)
			},
		}),
	}
}

func call[T any](ctx context.Context, c *APIClient, method, path string, body any) (T, error) {
	var out T
	res, err := c.breaker.Execute(func() (interface{}, error) {
		var v T
		err := c.do(ctx, method, path, body, &v)
		return v, err
	})
	if err != nil {
		return out, err
	}
	return res.(T), nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, dst any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		if eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Msg: eb.Error}
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*membership.Session, error) {
	return call[*membership.Session](ctx, c, http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password})
}

func (c *APIClient) Register(ctx context.Context, name, email, password string) (*membership.Registered, error) {
	res, err := call[struct {
		Message string                 `json:"message"`
		User    *membership.Registered `json:"user"`
	}](ctx, c, http.MethodPost, "/auth/register",
		map[string]string{"name": name, "email": email, "password": password})
	return res.User, err
}

func (c *APIClient) Books(ctx context.Context) ([]catalog.Book, error) {
	return call[[]catalog.Book](ctx, c, http.MethodGet, "/books", nil)
}

func (c *APIClient) GetBook(ctx context.Context, id int64) (*catalog.Book, error) {
	return call[*catalog.Book](ctx, c, http.MethodGet, fmt.Sprintf("/books/%d", id), nil)
}

func (c *APIClient) SearchBooks(ctx context.Context, query string) ([]catalog.Book, error) {
	return call[[]catalog.Book](ctx, c, http.MethodGet, "/books/search?q="+url.QueryEscape(query), nil)
}

func (c *APIClient) AddBook(ctx context.Context, in catalog.NewBook) (*catalog.Book, error) {
	return call[*catalog.Book](ctx, c, http.MethodPost, "/books", in)
}

func (c *APIClient) BookRatings(ctx context.Context, bookID int64) ([]catalog.Rating, error) {
	return call[[]catalog.Rating](ctx, c, http.MethodGet, fmt.Sprintf("/books/%d/ratings", bookID), nil)
}

func (c *APIClient) Rate(ctx context.Context, in catalog.RateInput) (*catalog.RateResult, error) {
	return call[*catalog.RateResult](ctx, c, http.MethodPost, "/ratings", struct {
		BookID  int64  `json:"bookId"`
		UserID  int64  `json:"userId"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
		Public  *bool  `json:"public,omitempty"`
	}{in.BookID, in.UserID, in.Rating, in.Comment, in.Public})
}

func (c *APIClient) Tiers(ctx context.Context) ([]circulation.Tier, error) {
	return call[[]circulation.Tier](ctx, c, http.MethodGet, "/tiers", nil)
}

func (c *APIClient) UserRentals(ctx context.Context, userID int64) ([]circulation.Rental, error) {
	return call[[]circulation.Rental](ctx, c, http.MethodGet, fmt.Sprintf("/rentals/user/%d", userID), nil)
}

func (c *APIClient) AllRentals(ctx context.Context) ([]circulation.AdminRental, error) {
	return call[[]circulation.AdminRental](ctx, c, http.MethodGet, "/rentals", nil)
}

func (c *APIClient) CreateRental(ctx context.Context, in circulation.CreateInput) (*circulation.Rental, error) {
	return call[*circulation.Rental](ctx, c, http.MethodPost, "/rentals", struct {
		BookID int64  `json:"bookId"`
		UserID int64  `json:"userId"`
		Tier   string `json:"tier"`
		Days   int    `json:"days"`
	}{in.BookID, in.UserID, in.Tier, in.Days})
}

func (c *APIClient) ReturnRental(ctx context.Context, rentalID, userID int64) (*circulation.ReturnResult, error) {
	return call[*circulation.ReturnResult](ctx, c, http.MethodPut, fmt.Sprintf("/rentals/%d/return", rentalID),
		map[string]int64{"userId": userID})
}

func (c *APIClient) Rankings(ctx context.Context) (*rankings.Rankings, error) {
	return call[*rankings.Rankings](ctx, c, http.MethodGet, "/rankings", nil)
}

func (c *APIClient) Blacklist(ctx context.Context) ([]rankings.BlacklistEntry, error) {
	return call[[]rankings.BlacklistEntry](ctx, c, http.MethodGet, "/blacklist", nil)
}

func (c *APIClient) FlagUser(ctx context.Context, userID int64) error {
	_, err := call[map[string]any](ctx, c, http.MethodPost, fmt.Sprintf("/blacklist/%d", userID), nil)
	return err
}

func (c *APIClient) ClearUser(ctx context.Context, userID int64) error {
	_, err := call[map[string]any](ctx, c, http.MethodDelete, fmt.Sprintf("/blacklist/%d", userID), nil)
	return err
}

func (c *APIClient) Redeem(ctx context.Context, userID int64, rewardType string, cost int) (*rewards.Result, error) {
	return call[*rewards.Result](ctx, c, http.MethodPost, "/rewards/redeem", struct {
		UserID     int64  `json:"userId"`
		RewardType string `json:"rewardType"`
		Cost       int    `json:"cost"`
	}{userID, rewardType, cost})
}

func (c *APIClient) UserRedemptions(ctx context.Context, userID int64) ([]rewards.Redemption, error) {
	return call[[]rewards.Redemption](ctx, c, http.MethodGet, fmt.Sprintf("/rewards/user/%d", userID), nil)
}

func (c *APIClient) Posts(ctx context.Context) ([]feed.Post, error) {
	return call[[]feed.Post](ctx, c, http.MethodGet, "/posts", nil)
}

func (c *APIClient) CreatePost(ctx context.Context, userID int64, content string) (*feed.Post, error) {
	return call[*feed.Post](ctx, c, http.MethodPost, "/posts", struct {
		UserID  int64  `json:"userId"`
		Content string `json:"content"`
	}{userID, content})
}

func (c *APIClient) Vote(ctx context.Context, postID, userID int64, voteType string) (*feed.Tally, error) {
	return call[*feed.Tally](ctx, c, http.MethodPost, fmt.Sprintf("/posts/%d/vote", postID), struct {
		UserID   int64  `json:"userId"`
		VoteType string `json:"voteType"`
	}{userID, voteType})
}

func (c *APIClient) UserVotes(ctx context.Context, userID int64) (map[int64]string, error) {
	return call[map[int64]string](ctx, c, http.MethodGet, fmt.Sprintf("/posts/votes/user/%d", userID), nil)
}

func (c *APIClient) Users(ctx context.Context) ([]membership.UserSummary, error) {
	return call[[]membership.UserSummary](ctx, c, http.MethodGet, "/users", nil)
}

func (c *APIClient) Points(ctx context.Context, userID int64) (int, error) {
	res, err := call[struct {
		Points int `json:"points"`
	}](ctx, c, http.MethodGet, fmt.Sprintf("/users/%d/points", userID), nil)
	return res.Points, err
}

func (c *APIClient) PointsHistory(ctx context.Context, userID int64) ([]ledger.Entry, error) {
	return call[[]ledger.Entry](ctx, c, http.MethodGet, fmt.Sprintf("/users/%d/ledger", userID), nil)
}

func (c *APIClient) ToggleGhost(ctx context.Context, userID int64) (bool, error) {
	res, err := call[struct {
		GhostMode bool `json:"ghostMode"`
	}](ctx, c, http.MethodPut, fmt.Sprintf("/users/%d/toggle-ghost", userID), nil)
	return res.GhostMode, err
}
