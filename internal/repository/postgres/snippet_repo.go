package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// snippetRepository implements repository.SnippetRepository.
type snippetRepository struct {
	db *DB
}

// NewSnippetRepository creates a new PostgreSQL snippet repository.
func NewSnippetRepository(db *DB) repository.SnippetRepository {
	return &snippetRepository{db: db}
}

const insertSnippetQuery = `
		INSERT INTO snippets (id, title, description, language, preview_code, content, tags,
			public, views, copy, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

const upsertAccessQuery = `
		INSERT INTO snippet_access_controls (snippet_id, user_id, read, write, manage)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (snippet_id, user_id) DO UPDATE
		SET read = EXCLUDED.read, write = EXCLUDED.write, manage = EXCLUDED.manage
	`

// Create stores a snippet and, for owned snippets, the owner's grant.
func (r *snippetRepository) Create(ctx context.Context, s *domain.Snippet) error {
	args := []any{
		s.ID, s.Title, s.Description, s.Language, s.PreviewCode, s.Content, s.Tags,
		s.Public, s.Views, s.Copy, s.OwnerID, s.CreatedAt, s.UpdatedAt,
	}

	if s.OwnerID == nil {
		if _, err := r.db.Pool.Exec(ctx, insertSnippetQuery, args...); err != nil {
			return fmt.Errorf("failed to create snippet: %w", err)
		}
		return nil
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSnippetQuery, args...); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: owner %s", domain.ErrUserNotFound, *s.OwnerID)
			}
			return fmt.Errorf("failed to create snippet: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertAccessQuery, s.ID, *s.OwnerID, true, true, true); err != nil {
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
		WHERE id = $1
	`

	s := &domain.Snippet{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.Language,
		&s.PreviewCode,
		&s.Content,
		&s.Tags,
		&s.Public,
		&s.Views,
		&s.Copy,
		&s.OwnerID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnippetNotFound
		}
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}

	return s, nil
}

// ListByOwner returns the owner's snippets with comment counts.
func (r *snippetRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.SnippetSummary], error) {
	opts = opts.Normalize()

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM snippets WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count snippets: %w", err)
	}

	query := `
		SELECT s.id, s.title, s.description, s.public, s.views, s.copy,
			(SELECT COUNT(*) FROM snippet_comments c WHERE c.snippet_id = s.id),
			s.owner_id, s.created_at
		FROM snippets s
		WHERE s.owner_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.SnippetSummary, 0)
	for rows.Next() {
		s := &domain.SnippetSummary{}
		if err := rows.Scan(
			&s.ID,
			&s.Title,
			&s.Description,
			&s.Public,
			&s.View,
			&s.Copy,
			&s.Comment,
			&s.OwnerID,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
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
	result, err := r.db.Pool.Exec(ctx, `UPDATE snippets SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSnippetNotFound
	}
	return nil
}

// GetAccess returns the explicit grant of userID on the snippet.
func (r *snippetRepository) GetAccess(ctx context.Context, snippetID, userID uuid.UUID) (*domain.SnippetAccessControl, error) {
	query := `
		SELECT snippet_id, user_id, read, write, manage
		FROM snippet_access_controls
		WHERE snippet_id = $1 AND user_id = $2
	`

	acl := &domain.SnippetAccessControl{}
	err := r.db.Pool.QueryRow(ctx, query, snippetID, userID).Scan(
		&acl.SnippetID,
		&acl.UserID,
		&acl.Read,
		&acl.Write,
		&acl.Manage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snippet access: %w", err)
	}

	return acl, nil
}

// UpsertAccess creates or replaces a grant.
func (r *snippetRepository) UpsertAccess(ctx context.Context, acl *domain.SnippetAccessControl) error {
	_, err := r.db.Pool.Exec(ctx, upsertAccessQuery, acl.SnippetID, acl.UserID, acl.Read, acl.Write, acl.Manage)
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
		WHERE snippet_id = $1
		ORDER BY user_id
	`

	rows, err := r.db.Pool.Query(ctx, query, snippetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippet access: %w", err)
	}
	defer rows.Close()

	acls := make([]*domain.SnippetAccessControl, 0)
	for rows.Next() {
		acl := &domain.SnippetAccessControl{}
		if err := rows.Scan(&acl.SnippetID, &acl.UserID, &acl.Read, &acl.Write, &acl.Manage); err != nil {
			return nil, fmt.Errorf("failed to scan snippet access: %w", err)
		}
		acls = append(acls, acl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snippet access: %w", err)
	}

	return acls, nil
}
