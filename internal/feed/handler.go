// internal/feed/handler.go
package feed

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"librent/internal/httpx"
)

type Handler struct {
	service Service
	log     *slog.Logger
}

func NewHandler(service Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/posts", h.handleList)
	r.Post("/posts", h.handleCreate)
	r.Post("/posts/{postId}/vote", h.handleVote)
	r.Get("/posts/votes/user/{userId}", h.handleUserVotes)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  int64  `json:"userId" validate:"required,gt=0"`
		Content string `json:"content" validate:"required"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	post, err := h.service.CreatePost(r.Context(), req.UserID, req.Content)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, post)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	postID, err := httpx.IDParam(r, "postId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req struct {
		UserID   int64  `json:"userId" validate:"required,gt=0"`
		VoteType string `json:"voteType" validate:"required,oneof=like dislike"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	tally, err := h.service.Vote(r.Context(), postID, req.UserID, req.VoteType)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tally)
}

func (h *Handler) handleUserVotes(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	votes, err := h.service.UserVotes(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, votes)
}
