package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librent/internal/apperr"
)

type mockService struct {
	ListBooksFn   func(ctx context.Context) ([]Book, error)
	GetBookFn     func(ctx context.Context, id int64) (*Book, error)
	SearchBooksFn func(ctx context.Context, query string) ([]Book, error)
	AddBookFn     func(ctx context.Context, in NewBook) (*Book, error)
	BookRatingsFn func(ctx context.Context, bookID int64) ([]Rating, error)
	RateFn        func(ctx context.Context, in RateInput) (*RateResult, error)
}

func (m *mockService) ListBooks(ctx context.Context) ([]Book, error) { return m.ListBooksFn(ctx) }
func (m *mockService) GetBook(ctx context.Context, id int64) (*Book, error) {
	return m.GetBookFn(ctx, id)
}
func (m *mockService) SearchBooks(ctx context.Context, query string) ([]Book, error) {
	return m.SearchBooksFn(ctx, query)
}
func (m *mockService) AddBook(ctx context.Context, in NewBook) (*Book, error) {
	return m.AddBookFn(ctx, in)
}
func (m *mockService) BookRatings(ctx context.Context, bookID int64) ([]Rating, error) {
	return m.BookRatingsFn(ctx, bookID)
}
func (m *mockService) Rate(ctx context.Context, in RateInput) (*RateResult, error) {
	return m.RateFn(ctx, in)
}

func serve(svc Service, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandleListBooks(t *testing.T) {
	svc := &mockService{ListBooksFn: func(context.Context) ([]Book, error) {
		return []Book{{ID: 3, Title: "Dune", Copies: CopiesPerTitle, Rented: 1, Cover: CoverURL("Dune", ""), RatingSum: 9, RatingCount: 2}}, nil
	}}
	rec := serve(svc, http.MethodGet, "/books", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":3,"title":"Dune","author":"","category":"","description":"","copies":5,"rented":1,
		"cover":"https://placehold.co/300x450/6366F1/FFFFFF?text=Dune","ratingSum":9,"ratingCount":2}]`, rec.Body.String())
}

func TestHandleSearchAndGet(t *testing.T) {
	svc := &mockService{
		SearchBooksFn: func(_ context.Context, q string) ([]Book, error) {
			if q == "" {
				return nil, apperr.New(apperr.Validation, "search query is required")
			}
			return []Book{{ID: 1, Title: q}}, nil
		},
		GetBookFn: func(_ context.Context, id int64) (*Book, error) {
			return nil, apperr.New(apperr.NotFound, "book not found")
		},
	}
	rec := serve(svc, http.MethodGet, "/books/search?q=dune", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"dune"`)

	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodGet, "/books/search", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/books/12", "").Code)
}

func TestHandleAddBook(t *testing.T) {
	svc := &mockService{AddBookFn: func(_ context.Context, in NewBook) (*Book, error) {
		return &Book{ID: 9, Title: in.Title, Author: in.Author, Copies: CopiesPerTitle}, nil
	}}
	rec := serve(svc, http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":9`)

	rec = serve(svc, http.MethodPost, "/books", `{"title":"Dune"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(svc, http.MethodPost, "/books", `{"title":"Dune","author":"F","cover":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBookRatings(t *testing.T) {
	svc := &mockService{BookRatingsFn: func(_ context.Context, id int64) ([]Rating, error) {
		return []Rating{{ID: 1, UserName: AnonymousName, Rating: 4}}, nil
	}}
	rec := serve(svc, http.MethodGet, "/books/3/ratings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userName":"Anonymous User"`)
}

func TestHandleRate(t *testing.T) {
	var got RateInput
	svc := &mockService{RateFn: func(_ context.Context, in RateInput) (*RateResult, error) {
		got = in
		return &RateResult{Message: "rating submitted", Created: true, PointsAwarded: RatingBonus}, nil
	}}

	rec := serve(svc, http.MethodPost, "/ratings", `{"bookId":3,"userId":1,"rating":4,"comment":"good","public":false}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"rating submitted","created":true,"pointsAwarded":10}`, rec.Body.String())
	require.NotNil(t, got.Public)
	assert.False(t, *got.Public)

	for _, body := range []string{
		`{"bookId":3,"userId":1,"rating":6}`,
		`{"bookId":3,"userId":1,"rating":0}`,
		`{"bookId":3,"rating":3}`,
	} {
		assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodPost, "/ratings", body).Code, body)
	}
}
