// internal/membership/handler.go
package membership

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"librent/internal/apperr"
	"librent/internal/httpx"
)

type Handler struct {
	service Service
	log     *slog.Logger
	limiter *clientLimiter
}

// NewHandler limits login and registration to perMinute requests per client
// address with the given burst.
func NewHandler(service Service, log *slog.Logger, perMinute, burst int) *Handler {
	return &Handler{
		service: service,
		log:     log,
		limiter: newClientLimiter(rate.Every(time.Minute/time.Duration(max(perMinute, 1))), max(burst, 1)),
	}
}

// Routes registers the auth and user endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/register", h.handleRegister)
	})
	r.Get("/users", h.handleListUsers)
	r.Get("/users/{userId}/points", h.handlePoints)
	r.Get("/users/{userId}/ledger", h.handleLedger)
	r.Put("/users/{userId}/toggle-ghost", h.handleToggleGhost)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "user created",
		"user":    user,
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handlePoints(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	points, err := h.service.Points(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"points": points})
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	entries, err := h.service.PointsHistory(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleToggleGhost(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.IDParam(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	ghost, err := h.service.ToggleGhost(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ghostMode": ghost})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.allow(clientKey(r)) {
			httpx.WriteError(w, r, h.log, apperr.New(apperr.RateLimited, "too many attempts, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientLimiter keeps one token bucket per client address. Buckets idle long
// enough to have refilled are swept, since a fresh bucket behaves the same.
type clientLimiter struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*visitor
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newClientLimiter(every rate.Limit, burst int) *clientLimiter {
	refill := time.Duration(float64(burst) / float64(every) * float64(time.Second))
	return &clientLimiter{
		every:   every,
		burst:   burst,
		idle:    max(refill, time.Minute),
		now:     time.Now,
		clients: make(map[string]*visitor),
	}
}

func (c *clientLimiter) allow(key string) bool {
	now := c.now()
	c.mu.Lock()
	if now.Sub(c.lastSweep) >= c.idle {
		for k, v := range c.clients {
			if now.Sub(v.seen) >= c.idle {
				delete(c.clients, k)
			}
		}
		c.lastSweep = now
	}
	v, ok := c.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(c.every, c.burst)}
		c.clients[key] = v
	}
	v.seen = now
	c.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}
