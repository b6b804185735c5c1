// internal/catalog/handler.go
package catalog

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

// Routes registers the book and rating endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/books", h.handleListBooks)
	r.Post("/books", h.handleAddBook)
	r.Get("/books/search", h.handleSearch)
	r.Get("/books/{bookId}", h.handleGetBook)
	r.Get("/books/{bookId}/ratings", h.handleBookRatings)
	r.Post("/ratings", h.handleRate)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req NewBook
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	book, err := h.service.AddBook(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.SearchBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "bookId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) handleBookRatings(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "bookId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	ratings, err := h.service.BookRatings(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ratings)
}

func (h *Handler) handleRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID  int64  `json:"bookId" validate:"required,gt=0"`
		UserID  int64  `json:"userId" validate:"required,gt=0"`
		Rating  int    `json:"rating" validate:"required,min=1,max=5"`
		Comment string `json:"comment"`
		Public  *bool  `json:"public"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	res, err := h.service.Rate(r.Context(), RateInput{
		BookID:  req.BookID,
		UserID:  req.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
		Public:  req.Public,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}
