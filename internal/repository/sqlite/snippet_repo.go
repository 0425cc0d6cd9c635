package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// snippetRepository implements repository.SnippetRepository for SQLite.
type snippetRepository struct {
	db *DB
}

// NewSnippetRepository creates a new SQLite snippet repository.
func NewSnippetRepository(db *DB) repository.SnippetRepository {
	return &snippetRepository{db: db}
}

const upsertAccessQuery = `
	INSERT INTO snippet_access_controls (snippet_id, user_id, read, write, manage)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (snippet_id, user_id) DO UPDATE
	SET read = excluded.read, write = excluded.write, manage = excluded.manage
`

// Create stores a snippet and, for owned snippets, the owner's grant.
func (r *snippetRepository) Create(ctx context.Context, s *domain.Snippet) error {
	tags, err := json.Marshal(s.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	var owner sql.NullString
	if s.OwnerID != nil {
		owner = sql.NullString{String: s.OwnerID.String(), Valid: true}
	}

	query := `
		INSERT INTO snippets (id, title, description, language, preview_code, content, tags,
			public, views, copy, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			s.ID.String(),
			s.Title,
			s.Description,
			s.Language,
			s.PreviewCode,
			s.Content,
			string(tags),
			boolToInt(s.Public),
			s.Views,
			s.Copy,
			owner,
			formatTime(s.CreatedAt),
			formatTime(s.UpdatedAt),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: owner %s", domain.ErrUserNotFound, owner.String)
			}
			return fmt.Errorf("failed to create snippet: %w", err)
		}

		if s.OwnerID == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, upsertAccessQuery, s.ID.String(), s.OwnerID.String(), 1, 1, 1); err != nil {
			return fmt.Errorf("failed to grant owner access: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a snippet with its content.
func (r *snippetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Snippet, error) {
	query := `
		SELECT id, title, description, language, preview_code, content, tags,
			public, views, copy, owner_id, created_at, updated_at
		FROM snippets
		WHERE id = ?
	`

	s := &domain.Snippet{}
	var (
		sid, tags, createdAt, updatedAt string
		public                          int
		owner                           sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&sid,
		&s.Title,
		&s.Description,
		&s.Language,
		&s.PreviewCode,
		&s.Content,
		&tags,
		&public,
		&s.Views,
		&s.Copy,
		&owner,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSnippetNotFound
		}
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}

	if s.ID, err = uuid.Parse(sid); err != nil {
		return nil, fmt.Errorf("invalid snippet id %q: %w", sid, err)
	}
	if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if s.OwnerID, err = parseNullableUUID(owner); err != nil {
		return nil, err
	}
	s.Public = public != 0
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)

	return s, nil
}

// ListByOwner returns the owner's snippets with comment counts.
func (r *snippetRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.SnippetSummary], error) {
	opts = opts.Normalize()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets WHERE owner_id = ?`, ownerID.String()).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count snippets: %w", err)
	}

	query := `
		SELECT s.id, s.title, s.description, s.public, s.views, s.copy,
			(SELECT COUNT(*) FROM snippet_comments c WHERE c.snippet_id = s.id),
			s.owner_id, s.created_at
		FROM snippets s
		WHERE s.owner_id = ?
		ORDER BY s.created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID.String(), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.SnippetSummary, 0)
	for rows.Next() {
		s := &domain.SnippetSummary{}
		var (
			id, createdAt string
			public        int
			owner         sql.NullString
		)
		if err := rows.Scan(&id, &s.Title, &s.Description, &public, &s.View, &s.Copy, &s.Comment, &owner, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid snippet id %q: %w", id, err)
		}
		if s.OwnerID, err = parseNullableUUID(owner); err != nil {
			return nil, err
		}
		s.Public = public != 0
		s.CreatedAt = parseTime(createdAt)
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snippets: %w", err)
	}

	return &repository.ListResult[domain.SnippetSummary]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// IncrementViews atomically bumps the view counter.
func (r *snippetRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE snippets SET views = views + 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrSnippetNotFound
	}
	return nil
}

// GetAccess returns the explicit grant of userID on the snippet.
func (r *snippetRepository) GetAccess(ctx context.Context, snippetID, userID uuid.UUID) (*domain.SnippetAccessControl, error) {
	query := `
		SELECT snippet_id, user_id, read, write, manage
		FROM snippet_access_controls
		WHERE snippet_id = ? AND user_id = ?
	`

	acl, err := scanAccess(r.db.QueryRowContext(ctx, query, snippetID.String(), userID.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snippet access: %w", err)
	}
	return acl, nil
}

// UpsertAccess creates or replaces a grant.
func (r *snippetRepository) UpsertAccess(ctx context.Context, acl *domain.SnippetAccessControl) error {
	_, err := r.db.ExecContext(ctx, upsertAccessQuery,
		acl.SnippetID.String(),
		acl.UserID.String(),
		boolToInt(acl.Read),
		boolToInt(acl.Write),
		boolToInt(acl.Manage),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: snippet %s or user %s", repository.ErrNotFound, acl.SnippetID, acl.UserID)
		}
		return fmt.Errorf("failed to upsert snippet access: %w", err)
	}
	return nil
}

// ListAccess returns every grant on the snippet.
func (r *snippetRepository) ListAccess(ctx context.Context, snippetID uuid.UUID) ([]*domain.SnippetAccessControl, error) {
	query := `
		SELECT snippet_id, user_id, read, write, manage
		FROM snippet_access_controls
		WHERE snippet_id = ?
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, snippetID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list snippet access: %w", err)
	}
	defer rows.Close()

	acls := make([]*domain.SnippetAccessControl, 0)
	for rows.Next() {
		acl, err := scanAccess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snippet access: %w", err)
		}
		acls = append(acls, acl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snippet access: %w", err)
	}

	return acls, nil
}

func scanAccess(row rowScanner) (*domain.SnippetAccessControl, error) {
	var (
		snippetID, userID   string
		read, write, manage int
	)
	if err := row.Scan(&snippetID, &userID, &read, &write, &manage); err != nil {
		return nil, err
	}

	acl := &domain.SnippetAccessControl{Read: read != 0, Write: write != 0, Manage: manage != 0}
	var err error
	if acl.SnippetID, err = uuid.Parse(snippetID); err != nil {
		return nil, fmt.Errorf("invalid snippet id %q: %w", snippetID, err)
	}
	if acl.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	return acl, nil
}

func parseNullableUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", s.String, err)
	}
	return &id, nil
}
