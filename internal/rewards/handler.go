// internal/rewards/handler.go
package rewards

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
	r.Post("/rewards/redeem", h.handleRedeem)
	r.Get("/rewards/user/{userId}", h.handleUserRedemptions)
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     int64  `json:"userId" validate:"required,gt=0"`
		RewardType string `json:"rewardType" validate:"required"`
		Cost       *int   `json:"cost" validate:"required,gte=0"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	res, err := h.service.Redeem(r.Context(), req.UserID, req.RewardType, *req.Cost)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUserRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	out, err := h.service.UserRedemptions(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
