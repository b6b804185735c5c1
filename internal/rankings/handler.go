// internal/rankings/handler.go
package rankings

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
	r.Get("/rankings", h.handleRankings)
	r.Get("/blacklist", h.handleBlacklist)
}

func (h *Handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.service.Rankings(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rankings)
}

func (h *Handler) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Blacklist(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}
