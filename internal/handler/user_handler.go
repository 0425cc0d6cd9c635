package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/service"
)

// UserHandler serves account endpoints.
type UserHandler struct {
	commands *service.Registry
	users    *service.UserService
	auth     *auth.Middleware
	logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(commands *service.Registry, users *service.UserService, authMiddleware *auth.Middleware, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		commands: commands,
		users:    users,
		auth:     authMiddleware,
		logger:   logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes mounts the account routes on r.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/verify", h.Verify)
		r.Post("/verify/resend", h.ResendVerification)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Required)
			r.Get("/me", h.Me)
			r.Put("/me/settings", h.UpdateSettings)
			r.Get("/me/snippets", h.MySnippets)
		})

		r.With(h.auth.Optional).Get("/{id}", h.Get)
	})
}

type registerRequest struct {
	EmailAddress string                   `json:"emailAddress"`
	FirstName    string                   `json:"firstName"`
	MiddleName   string                   `json:"middleName"`
	LastName     string                   `json:"lastName"`
	Password     string                   `json:"password"`
	Visibility   domain.AccountVisibility `json:"visibility"`
}

type loginRequest struct {
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	EmailAddress string `json:"emailAddress"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type settingsRequest struct {
	EnableNotificationsForMentions *bool                     `json:"enableNotificationsForMentions"`
	AllowTagging                   *bool                     `json:"allowTagging"`
	Visibility                     *domain.AccountVisibility `json:"visibility"`
}

// LoginResponse is returned by login and refresh.
type LoginResponse struct {
	User   *domain.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Register handles POST /v1/users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := service.Execute[*domain.User](r.Context(), h.commands, service.RegisterUser{
		RegisterInput: service.RegisterInput{
			EmailAddress: req.EmailAddress,
			FirstName:    req.FirstName,
			MiddleName:   req.MiddleName,
			LastName:     req.LastName,
			Password:     req.Password,
			Visibility:   req.Visibility,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/users/"+user.ID.String())
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /v1/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := service.Execute[*service.LoginOutput](r.Context(), h.commands, service.LoginUser{
		EmailAddress: req.EmailAddress,
		Password:     req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{User: out.User, Tokens: out.Tokens})
}

// Refresh handles POST /v1/users/refresh.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := service.Execute[*service.LoginOutput](r.Context(), h.commands, service.RefreshToken{Token: req.RefreshToken})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{User: out.User, Tokens: out.Tokens})
}

// Verify handles POST /v1/users/verify.
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := service.Execute[*domain.User](r.Context(), h.commands, service.VerifyUser{Token: req.Token})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ResendVerification handles POST /v1/users/verify/resend.
// Unknown addresses are accepted silently.
func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := service.Execute[service.Done](r.Context(), h.commands, service.ResendVerification{EmailAddress: req.EmailAddress}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

// ForgotPassword handles POST /v1/users/forgot-password.
// Unknown addresses are accepted silently.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := service.Execute[service.Done](r.Context(), h.commands, service.ForgotPassword{EmailAddress: req.EmailAddress}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

// ResetPassword handles POST /v1/users/reset-password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := service.Execute[service.Done](r.Context(), h.commands, service.ResetPassword{
		Token:    req.Token,
		Password: req.Password,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), p.UserID, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateSettings handles PUT /v1/users/me/settings.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := service.Execute[*domain.User](r.Context(), h.commands, service.UpdateSettings{
		UserID: p.UserID,
		UpdateSettingsInput: service.UpdateSettingsInput{
			EnableNotificationsForMentions: req.EnableNotificationsForMentions,
			AllowTagging:                   req.AllowTagging,
			Visibility:                     req.Visibility,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// MySnippets handles GET /v1/users/me/snippets.
func (h *UserHandler) MySnippets(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.users.MySnippets(r.Context(), p.UserID, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), viewerID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// viewerID is the authenticated user or uuid.Nil for anonymous requests.
func viewerID(r *http.Request) uuid.UUID {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return p.UserID
	}
	return uuid.Nil
}
