package feed

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
	ListPostsFn  func(ctx context.Context) ([]Post, error)
	CreatePostFn func(ctx context.Context, userID int64, content string) (*Post, error)
	VoteFn       func(ctx context.Context, postID, userID int64, voteType string) (*Tally, error)
	UserVotesFn  func(ctx context.Context, userID int64) (map[int64]string, error)
}

func (m *mockService) ListPosts(ctx context.Context) ([]Post, error) { return m.ListPostsFn(ctx) }
func (m *mockService) CreatePost(ctx context.Context, userID int64, content string) (*Post, error) {
	return m.CreatePostFn(ctx, userID, content)
}
func (m *mockService) Vote(ctx context.Context, postID, userID int64, voteType string) (*Tally, error) {
	return m.VoteFn(ctx, postID, userID, voteType)
}
func (m *mockService) UserVotes(ctx context.Context, userID int64) (map[int64]string, error) {
	return m.UserVotesFn(ctx, userID)
}

func serve(svc Service, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandleCreatePost(t *testing.T) {
	svc := &mockService{CreatePostFn: func(_ context.Context, userID int64, content string) (*Post, error) {
		if strings.TrimSpace(content) == "" {
			return nil, apperr.New(apperr.Validation, "content is required")
		}
		return &Post{ID: 1, UserID: userID, UserName: "Ana", Content: content}, nil
	}}

	rec := serve(svc, http.MethodPost, "/posts", `{"userId":1,"content":"Finished Dune!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"Finished Dune!"`)

	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodPost, "/posts", `{"userId":1,"content":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodPost, "/posts", `{"userId":1,"content":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodPost, "/posts", `{"content":"hi"}`).Code)
}

func TestHandleVote(t *testing.T) {
	svc := &mockService{VoteFn: func(_ context.Context, postID, _ int64, voteType string) (*Tally, error) {
		if postID == 404 {
			return nil, apperr.New(apperr.NotFound, "post not found")
		}
		return &Tally{Likes: 3, Dislikes: 1}, nil
	}}

	rec := serve(svc, http.MethodPost, "/posts/7/vote", `{"userId":1,"voteType":"like"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"likes":3,"dislikes":1}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodPost, "/posts/7/vote", `{"userId":1,"voteType":"love"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodPost, "/posts/404/vote", `{"userId":1,"voteType":"dislike"}`).Code)
}

func TestHandleUserVotesAndList(t *testing.T) {
	svc := &mockService{
		UserVotesFn: func(context.Context, int64) (map[int64]string, error) {
			return map[int64]string{3: Like, 9: Dislike}, nil
		},
		ListPostsFn: func(context.Context) ([]Post, error) { return []Post{}, nil },
	}

	rec := serve(svc, http.MethodGet, "/posts/votes/user/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"3":"like","9":"dislike"}`, rec.Body.String())

	rec = serve(svc, http.MethodGet, "/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
