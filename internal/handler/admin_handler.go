package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/service"
)

// AdminHandler serves operator endpoints. The administrator check happens
// in the user service.
type AdminHandler struct {
	commands *service.Registry
	auth     *auth.Middleware
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(commands *service.Registry, authMiddleware *auth.Middleware, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		commands: commands,
		auth:     authMiddleware,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

// RegisterRoutes mounts the admin routes on r.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.auth.Required)
		r.Post("/users/{id}/deactivate", h.Deactivate)
		r.Post("/users/{id}/activate", h.Activate)
	})
}

type deactivateRequest struct {
	Reason string `json:"reason"`
}

// Deactivate handles POST /v1/admin/users/{id}/deactivate. The body is optional.
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req deactivateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	user, err := service.Execute[*domain.User](r.Context(), h.commands, service.DeactivateUser{
		Actor:    actor,
		TargetID: id,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info().
		Str("actor", actor.UserID.String()).
		Str("user_id", id.String()).
		Msg("admin deactivated user")
	writeJSON(w, http.StatusOK, user)
}

// Activate handles POST /v1/admin/users/{id}/activate.
func (h *AdminHandler) Activate(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := service.Execute[*domain.User](r.Context(), h.commands, service.ActivateUser{
		Actor:    actor,
		TargetID: id,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info().
		Str("actor", actor.UserID.String()).
		Str("user_id", id.String()).
		Msg("admin activated user")
	writeJSON(w, http.StatusOK, user)
}
