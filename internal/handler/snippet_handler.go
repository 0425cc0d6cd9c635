package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/service"
)

// Multipart form fields of snippet creation.
const (
	formFieldFile = "file"
	formFieldBody = "body"
)

// SnippetHandler serves snippet, comment and access endpoints.
type SnippetHandler struct {
	commands    *service.Registry
	snippets    *service.SnippetService
	auth        *auth.Middleware
	maxFormSize int64
	logger      zerolog.Logger
}

// NewSnippetHandler creates a new SnippetHandler. maxFormSize bounds the
// multipart form kept in memory.
func NewSnippetHandler(commands *service.Registry, snippets *service.SnippetService, authMiddleware *auth.Middleware, maxFormSize int64, logger zerolog.Logger) *SnippetHandler {
	if maxFormSize <= 0 {
		maxFormSize = 4 << 20
	}
	return &SnippetHandler{
		commands:    commands,
		snippets:    snippets,
		auth:        authMiddleware,
		maxFormSize: maxFormSize,
		logger:      logger.With().Str("handler", "snippet").Logger(),
	}
}

// RegisterRoutes mounts the snippet routes on r.
func (h *SnippetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/snippets", func(r chi.Router) {
		r.Post("/public", h.CreatePublic)
		r.With(h.auth.Required).Post("/", h.Create)
		r.With(h.auth.Required).Get("/recent", h.Recent)

		r.Route("/{id}", func(r chi.Router) {
			r.With(h.auth.Optional).Get("/", h.Get)
			r.With(h.auth.Optional).Get("/comments", h.ListComments)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Required)
				r.Post("/comments", h.CreateComment)
				r.Get("/access", h.ListAccess)
				r.Put("/access", h.UpdateAccess)
			})
		})
	})
}

type createSnippetRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	PreviewCode string   `json:"previewCode"`
	Tags        []string `json:"tags"`
	Public      bool     `json:"public"`
}

type createCommentRequest struct {
	Text            string     `json:"text"`
	ParentCommentID *uuid.UUID `json:"parentCommentId"`
}

type grantAccessRequest struct {
	UserID uuid.UUID `json:"userId"`
	Read   bool      `json:"read"`
	Write  bool      `json:"write"`
	Manage bool      `json:"manage"`
}

// CreatePublic handles POST /v1/snippets/public. The snippet has no owner.
func (h *SnippetHandler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, nil)
}

// Create handles POST /v1/snippets for the authenticated owner.
func (h *SnippetHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner := p.UserID
	h.create(w, r, &owner)
}

func (h *SnippetHandler) create(w http.ResponseWriter, r *http.Request, ownerID *uuid.UUID) {
	input, err := h.readSnippetForm(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snippet, err := service.Execute[*domain.Snippet](r.Context(), h.commands, service.CreateSnippet{
		OwnerID:            ownerID,
		CreateSnippetInput: input,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/snippets/"+snippet.ID.String())
	writeJSON(w, http.StatusCreated, snippet)
}

// readSnippetForm reads the uploaded file and the JSON metadata in the
// multipart "body" field.
func (h *SnippetHandler) readSnippetForm(r *http.Request) (service.CreateSnippetInput, error) {
	var input service.CreateSnippetInput

	if err := r.ParseMultipartForm(h.maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return input, fmt.Errorf("%w: request body exceeds %d bytes", errBadRequest, tooLarge.Limit)
		}
		return input, fmt.Errorf("%w: expected a multipart form: %v", errBadRequest, err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, _, err := r.FormFile(formFieldFile)
	if err != nil {
		return input, fmt.Errorf("%w: missing file object", errBadRequest)
	}
	defer file.Close()

	raw := r.FormValue(formFieldBody)
	if raw == "" {
		return input, fmt.Errorf("%w: invalid body object", errBadRequest)
	}
	var req createSnippetRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return input, fmt.Errorf("%w: failed to parse the request: %v", errBadRequest, err)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return input, fmt.Errorf("%w: failed to read file: %v", errBadRequest, err)
	}

	return service.CreateSnippetInput{
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
		PreviewCode: req.PreviewCode,
		Tags:        req.Tags,
		Public:      req.Public,
		Content:     content,
	}, nil
}

// Get handles GET /v1/snippets/{id}.
func (h *SnippetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.snippets.Get(r.Context(), viewerID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Recent handles GET /v1/snippets/recent.
func (h *SnippetHandler) Recent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snippets.RecentSnippets(r.Context(), p.UserID))
}

// ListComments handles GET /v1/snippets/{id}/comments.
func (h *SnippetHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.snippets.ListComments(r.Context(), viewerID(r), id, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateComment handles POST /v1/snippets/{id}/comments.
func (h *SnippetHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := service.Execute[*domain.SnippetComment](r.Context(), h.commands, service.CreateComment{
		AuthorID:  p.UserID,
		SnippetID: id,
		CreateCommentInput: service.CreateCommentInput{
			Text:            req.Text,
			ParentCommentID: req.ParentCommentID,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/snippets/"+id.String()+"/comments")
	writeJSON(w, http.StatusCreated, comment)
}

// ListAccess handles GET /v1/snippets/{id}/access.
func (h *SnippetHandler) ListAccess(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.snippets.ListAccess(r.Context(), p.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// UpdateAccess handles PUT /v1/snippets/{id}/access.
func (h *SnippetHandler) UpdateAccess(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req grantAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	record, err := service.Execute[domain.AccessControlRecord](r.Context(), h.commands, service.UpdateAccess{
		Actor:     p.UserID,
		SnippetID: id,
		GrantAccessInput: service.GrantAccessInput{
			UserID: req.UserID,
			Read:   req.Read,
			Write:  req.Write,
			Manage: req.Manage,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
