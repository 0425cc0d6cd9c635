package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Snippet limits.
const (
	SnippetTitleMinLength = 1
	SnippetTitleMaxLength = 200
	SnippetMaxContentSize = 2 * 1024 * 1024
	SnippetMaxTags        = 10

	// PreviewLength is the number of content bytes used when no preview is given.
	PreviewLength = 1200

	CommentMaxLength = 4000
)

// Snippet is a piece of shared code.
type Snippet struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Language    string     `json:"language"`
	PreviewCode string     `json:"previewCode"`
	Content     []byte     `json:"-"`
	Tags        []string   `json:"tags"`
	Public      bool       `json:"public"`
	Views       int64      `json:"views"`
	Copy        int64      `json:"copy"`
	OwnerID     *uuid.UUID `json:"ownerId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewSnippet creates a snippet. A nil owner means an anonymous snippet,
// which is always public.
func NewSnippet(ownerID *uuid.UUID, title, description, language, preview string, content []byte, tags []string, public bool) *Snippet {
	now := time.Now().UTC()
	if ownerID == nil {
		public = true
	}
	if preview == "" {
		preview = BuildPreview(content)
	}
	if tags == nil {
		tags = []string{}
	}
	return &Snippet{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Language:    strings.ToLower(strings.TrimSpace(language)),
		PreviewCode: preview,
		Content:     content,
		Tags:        tags,
		Public:      public,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// BuildPreview returns the first PreviewLength bytes of content,
// trimmed back to a rune boundary.
func BuildPreview(content []byte) string {
	if len(content) <= PreviewLength {
		return string(content)
	}
	cut := content[:PreviewLength]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut)
}

// IsOwnedBy reports whether userID owns the snippet.
func (s *Snippet) IsOwnedBy(userID uuid.UUID) bool {
	return s.OwnerID != nil && userID != uuid.Nil && *s.OwnerID == userID
}

// Validate checks the snippet against the limits.
func (s *Snippet) Validate() error {
	n := utf8.RuneCountInString(s.Title)
	if n < SnippetTitleMinLength || n > SnippetTitleMaxLength {
		return ErrSnippetTitleLength
	}
	if s.Language == "" {
		return ErrSnippetLanguageRequired
	}
	if len(s.Content) == 0 {
		return ErrSnippetContentRequired
	}
	if len(s.Content) > SnippetMaxContentSize {
		return ErrSnippetContentTooLarge
	}
	if len(s.Tags) > SnippetMaxTags {
		return ErrTooManyTags
	}
	return nil
}

// SnippetAccessControl is an explicit grant of capabilities on a snippet.
type SnippetAccessControl struct {
	SnippetID uuid.UUID `json:"snippetId"`
	UserID    uuid.UUID `json:"userId"`
	Read      bool      `json:"read"`
	Write     bool      `json:"write"`
	Manage    bool      `json:"manage"`
}

// SnippetComment is a comment on a snippet, optionally replying to another.
type SnippetComment struct {
	ID              uuid.UUID  `json:"id"`
	SnippetID       uuid.UUID  `json:"snippetId"`
	UserID          uuid.UUID  `json:"userId"`
	Text            string     `json:"text"`
	ParentCommentID *uuid.UUID `json:"parentCommentId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// NewSnippetComment creates a comment after checking its text.
func NewSnippetComment(snippetID, userID uuid.UUID, text string, parentID *uuid.UUID) (*SnippetComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrCommentEmpty
	}
	if utf8.RuneCountInString(text) > CommentMaxLength {
		return nil, ErrCommentTooLong
	}
	return &SnippetComment{
		ID:              uuid.New(),
		SnippetID:       snippetID,
		UserID:          userID,
		Text:            text,
		ParentCommentID: parentID,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// SnippetSummary is a snippet row with its aggregated counters.
type SnippetSummary struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Public      bool       `json:"public"`
	View        int64      `json:"view"`
	Copy        int64      `json:"copy"`
	Comment     int64      `json:"comment"`
	OwnerID     *uuid.UUID `json:"ownerId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
