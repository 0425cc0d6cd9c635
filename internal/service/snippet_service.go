package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/cache"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// Recently viewed snippets kept per user.
const (
	maxRecentSnippets = 10
	recentSnippetsTTL = 7 * 24 * time.Hour
)

// SnippetService handles snippet creation, retrieval, comments and grants.
type SnippetService struct {
	snippets   repository.SnippetRepository
	comments   repository.CommentRepository
	cache      *cache.ResourceCache
	access     *AccessResolver
	snippetTTL time.Duration
	logger     zerolog.Logger
}

// NewSnippetService creates a new SnippetService.
func NewSnippetService(
	snippets repository.SnippetRepository,
	comments repository.CommentRepository,
	resourceCache *cache.ResourceCache,
	snippetTTL time.Duration,
	logger zerolog.Logger,
) *SnippetService {
	return &SnippetService{
		snippets:   snippets,
		comments:   comments,
		cache:      resourceCache,
		access:     NewAccessResolver(snippets),
		snippetTTL: snippetTTL,
		logger:     logger.With().Str("service", "snippet").Logger(),
	}
}

// CreateSnippetInput contains the data of a new snippet.
type CreateSnippetInput struct {
	Title       string
	Description string
	Language    string
	PreviewCode string
	Tags        []string
	Public      bool
	Content     []byte
}

// SnippetView is a snippet as returned to one viewer.
type SnippetView struct {
	*domain.Snippet
	Code   string                     `json:"code"`
	Access domain.AccessControlRecord `json:"access"`
}

// RecentSnippet is an entry of a user's recently viewed snippets.
type RecentSnippet struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Language string    `json:"language"`
	ViewedAt time.Time `json:"viewedAt"`
}

// cachedSnippet keeps the content, which domain.Snippet does not serialize.
type cachedSnippet struct {
	Snippet *domain.Snippet `json:"snippet"`
	Content []byte          `json:"content"`
}

// Create stores a snippet. ownerID is nil for anonymous snippets, which are
// always public.
func (s *SnippetService) Create(ctx context.Context, ownerID *uuid.UUID, input CreateSnippetInput) (*domain.Snippet, error) {
	snippet := domain.NewSnippet(ownerID, input.Title, input.Description, input.Language, input.PreviewCode, input.Content, normalizeTags(input.Tags), input.Public)
	if err := snippet.Validate(); err != nil {
		v := NewValidationError()
		v.AddError(snippetField(err), err)
		return nil, v
	}

	if err := s.snippets.Create(ctx, snippet); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("failed to create snippet")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ev := s.logger.Info().Str("snippet_id", snippet.ID.String()).Bool("public", snippet.Public)
	if ownerID != nil {
		ev = ev.Str("owner_id", ownerID.String())
	}
	ev.Msg("snippet created")

	return snippet, nil
}

// Get returns the snippet if viewer can read it and counts the view.
// viewer is uuid.Nil for anonymous callers.
func (s *SnippetService) Get(ctx context.Context, viewer, snippetID uuid.UUID) (*SnippetView, error) {
	snippet, content, err := s.load(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	decision, err := s.access.Resolve(ctx, snippet, viewer)
	if err != nil {
		s.logger.Error().Err(err).Str("snippet_id", snippetID.String()).Msg("access lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := Require(decision, domain.CapabilityRead); err != nil {
		return nil, err
	}

	if err := s.snippets.IncrementViews(ctx, snippetID); err != nil {
		s.logger.Warn().Err(err).Str("snippet_id", snippetID.String()).Msg("failed to count view")
	}
	s.rememberView(ctx, viewer, snippet)

	return &SnippetView{
		Snippet: snippet,
		Code:    string(content),
		Access:  decision.ToAccessControlRecord(),
	}, nil
}

// RecentSnippets returns the snippets viewer opened most recently, newest
// first. The list lives only in the cache and is empty after a miss.
func (s *SnippetService) RecentSnippets(ctx context.Context, viewer uuid.UUID) []RecentSnippet {
	recent := []RecentSnippet{}
	if viewer == uuid.Nil {
		return recent
	}
	s.cache.GetJSON(ctx, repository.ResourceRecentSnippets, viewer.String(), &recent)
	return recent
}

// rememberView moves snippet to the front of the viewer's recent list.
func (s *SnippetService) rememberView(ctx context.Context, viewer uuid.UUID, snippet *domain.Snippet) {
	if viewer == uuid.Nil {
		return
	}

	previous := s.RecentSnippets(ctx, viewer)
	recent := make([]RecentSnippet, 0, maxRecentSnippets)
	recent = append(recent, RecentSnippet{
		ID:       snippet.ID,
		Title:    snippet.Title,
		Language: snippet.Language,
		ViewedAt: time.Now().UTC(),
	})
	for _, r := range previous {
		if len(recent) == maxRecentSnippets {
			break
		}
		if r.ID != snippet.ID {
			recent = append(recent, r)
		}
	}

	s.cache.SetJSON(ctx, repository.ResourceRecentSnippets, viewer.String(), recent, recentSnippetsTTL)
}

// load reads the snippet through the cache.
func (s *SnippetService) load(ctx context.Context, snippetID uuid.UUID) (*domain.Snippet, []byte, error) {
	var cached cachedSnippet
	if s.cache.GetJSON(ctx, repository.ResourceSnippet, snippetID.String(), &cached) && cached.Snippet != nil {
		return cached.Snippet, cached.Content, nil
	}

	snippet, err := s.snippets.GetByID(ctx, snippetID)
	if err != nil {
		if errors.Is(err, domain.ErrSnippetNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.cache.SetJSON(ctx, repository.ResourceSnippet, snippetID.String(),
		cachedSnippet{Snippet: snippet, Content: snippet.Content}, s.snippetTTL)
	return snippet, snippet.Content, nil
}

// Decision evaluates the viewer's access to a snippet.
func (s *SnippetService) Decision(ctx context.Context, viewer, snippetID uuid.UUID) (domain.AccessDecision, error) {
	snippet, _, err := s.load(ctx, snippetID)
	if err != nil {
		return domain.ErrorPermission(), err
	}
	return s.access.Resolve(ctx, snippet, viewer)
}

// ListComments returns the comments of a snippet the viewer can read.
func (s *SnippetService) ListComments(ctx context.Context, viewer, snippetID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.SnippetComment], error) {
	if err := s.require(ctx, viewer, snippetID, domain.CapabilityRead); err != nil {
		return nil, err
	}

	result, err := s.comments.ListBySnippet(ctx, snippetID, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// CreateCommentInput contains a new comment.
type CreateCommentInput struct {
	Text            string
	ParentCommentID *uuid.UUID
}

// CreateComment adds a comment to a snippet the author can read.
// A reply must target a comment of the same snippet.
func (s *SnippetService) CreateComment(ctx context.Context, authorID, snippetID uuid.UUID, input CreateCommentInput) (*domain.SnippetComment, error) {
	if err := s.require(ctx, authorID, snippetID, domain.CapabilityRead); err != nil {
		return nil, err
	}

	comment, err := domain.NewSnippetComment(snippetID, authorID, input.Text, input.ParentCommentID)
	if err != nil {
		v := NewValidationError()
		v.AddError("text", err)
		return nil, v
	}

	if input.ParentCommentID != nil {
		parent, err := s.comments.GetByID(ctx, *input.ParentCommentID)
		if err != nil {
			if errors.Is(err, domain.ErrCommentNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if parent.SnippetID != snippetID {
			return nil, domain.NewDomainError(domain.ErrCommentNotFound, "parent belongs to another snippet", parent.ID.String())
		}
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, domain.ErrSnippetNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("snippet_id", snippetID.String()).Msg("failed to create comment")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.cache.Invalidate(ctx, repository.ResourceSnippet, snippetID.String())

	s.logger.Info().
		Str("snippet_id", snippetID.String()).
		Str("comment_id", comment.ID.String()).
		Msg("comment created")
	return comment, nil
}

// ListAccess returns every grant on the snippet. actor needs manage.
func (s *SnippetService) ListAccess(ctx context.Context, actor, snippetID uuid.UUID) ([]domain.AccessControlRecord, error) {
	if err := s.require(ctx, actor, snippetID, domain.CapabilityManage); err != nil {
		return nil, err
	}

	grants, err := s.snippets.ListAccess(ctx, snippetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	records := make([]domain.AccessControlRecord, len(grants))
	for i, g := range grants {
		records[i] = domain.NewAccessDecision(g.SnippetID, g.UserID, g.Read, g.Write, g.Manage, false).ToAccessControlRecord()
	}
	return records, nil
}

// GrantAccessInput is the new raw grant for one user.
type GrantAccessInput struct {
	UserID uuid.UUID
	Read   bool
	Write  bool
	Manage bool
}

// UpdateAccess creates or replaces a grant. actor needs manage; the
// owner's own grant cannot be changed.
func (s *SnippetService) UpdateAccess(ctx context.Context, actor, snippetID uuid.UUID, input GrantAccessInput) (domain.AccessControlRecord, error) {
	if input.UserID == uuid.Nil {
		v := NewValidationError()
		v.Add("userId", "is required")
		return domain.AccessControlRecord{}, v
	}

	snippet, _, err := s.load(ctx, snippetID)
	if err != nil {
		return domain.AccessControlRecord{}, err
	}
	decision, err := s.access.Resolve(ctx, snippet, actor)
	if err != nil {
		return domain.AccessControlRecord{}, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := Require(decision, domain.CapabilityManage); err != nil {
		return domain.AccessControlRecord{}, err
	}
	if snippet.IsOwnedBy(input.UserID) {
		return domain.AccessControlRecord{}, domain.NewDomainError(domain.ErrAccessDenied, "owner access cannot be changed", snippetID.String())
	}

	grant := &domain.SnippetAccessControl{
		SnippetID: snippetID,
		UserID:    input.UserID,
		Read:      input.Read,
		Write:     input.Write,
		Manage:    input.Manage,
	}
	if err := s.snippets.UpsertAccess(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AccessControlRecord{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, input.UserID)
		}
		return domain.AccessControlRecord{}, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.cache.Invalidate(ctx, repository.ResourceSnippet, snippetID.String())

	s.logger.Info().
		Str("snippet_id", snippetID.String()).
		Str("user_id", input.UserID.String()).
		Bool("read", input.Read).
		Bool("write", input.Write).
		Bool("manage", input.Manage).
		Msg("snippet access updated")

	return domain.NewAccessDecision(snippetID, input.UserID, input.Read, input.Write, input.Manage, snippet.Public).ToAccessControlRecord(), nil
}

func (s *SnippetService) require(ctx context.Context, accessor, snippetID uuid.UUID, caps ...domain.Capability) error {
	decision, err := s.Decision(ctx, accessor, snippetID)
	if err != nil {
		if errors.Is(err, domain.ErrSnippetNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("snippet_id", snippetID.String()).Msg("access lookup failed")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return Require(decision, caps...)
}

// normalizeTags trims, lowercases and deduplicates tags.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func snippetField(err error) string {
	switch {
	case errors.Is(err, domain.ErrSnippetTitleLength):
		return "title"
	case errors.Is(err, domain.ErrSnippetLanguageRequired):
		return "language"
	case errors.Is(err, domain.ErrTooManyTags):
		return "tags"
	default:
		return "file"
	}
}
