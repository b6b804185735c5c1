// internal/circulation/handler.go
package circulation

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

// Routes registers the rental, tier and blacklist flag endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tiers", h.handleTiers)
	r.Get("/rentals", h.handleAllRentals)
	r.Post("/rentals", h.handleCreate)
	r.Get("/rentals/user/{userId}", h.handleUserRentals)
	r.Put("/rentals/{rentalId}/return", h.handleReturn)
	r.Post("/blacklist/{userId}", h.handleFlag)
	r.Delete("/blacklist/{userId}", h.handleClear)
}

func (h *Handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.service.ListTiers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tiers)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID int64  `json:"bookId" validate:"required,gt=0"`
		UserID int64  `json:"userId" validate:"required,gt=0"`
		Tier   string `json:"tier"`
		// Zero or a duration no tier offers falls back to the default tier.
		Days   int    `json:"days" validate:"gte=0"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	rental, err := h.service.CreateRental(r.Context(), CreateInput{
		BookID: req.BookID,
		UserID: req.UserID,
		Tier:   req.Tier,
		Days:   req.Days,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rental)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	rentalID, err := httpx.IDParam(r, "rentalId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	var req struct {
		UserID int64 `json:"userId" validate:"gte=0"`
	}
	if err := httpx.DecodeOptional(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	res, err := h.service.ReturnRental(r.Context(), rentalID, req.UserID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUserRentals(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	rentals, err := h.service.UserRentals(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rentals)
}

func (h *Handler) handleAllRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.service.AllRentals(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rentals)
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.FlagUser(r.Context(), userID); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"userId": userID, "blacklisted": true})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.ClearUser(r.Context(), userID); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"userId": userID, "blacklisted": false})
}
