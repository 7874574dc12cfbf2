package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opticlinic/opticlinic/internal/platform/httpx"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Handler serves the auth endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	tokens  *TokenIssuer
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, tokens *TokenIssuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, tokens: tokens}
}

// MountRoutes registers login (public) and me (authenticated).
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.With(Authenticate(h.tokens)).Get("/me", h.me)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.logger.Warn("login failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrUnauthorized)
		return
	}
	user, err := h.service.Me(r.Context(), actor.UserID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
