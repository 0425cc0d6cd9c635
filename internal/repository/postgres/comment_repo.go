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

// commentRepository implements repository.CommentRepository.
type commentRepository struct {
	db *DB
}

// NewCommentRepository creates a new PostgreSQL comment repository.
func NewCommentRepository(db *DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

// Create stores a comment.
func (r *commentRepository) Create(ctx context.Context, c *domain.SnippetComment) error {
	query := `
		INSERT INTO snippet_comments (id, snippet_id, user_id, text, parent_comment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query, c.ID, c.SnippetID, c.UserID, c.Text, c.ParentCommentID, c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: snippet %s", domain.ErrSnippetNotFound, c.SnippetID)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

// GetByID retrieves a comment by ID.
func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SnippetComment, error) {
	query := `
		SELECT id, snippet_id, user_id, text, parent_comment_id, created_at
		FROM snippet_comments
		WHERE id = $1
	`

	c := &domain.SnippetComment{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.SnippetID,
		&c.UserID,
		&c.Text,
		&c.ParentCommentID,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return c, nil
}

// ListBySnippet returns comments on a snippet, oldest first.
func (r *commentRepository) ListBySnippet(ctx context.Context, snippetID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.SnippetComment], error) {
	opts = opts.Normalize()

	total, err := r.CountBySnippet(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, snippet_id, user_id, text, parent_comment_id, created_at
		FROM snippet_comments
		WHERE snippet_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, snippetID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.SnippetComment, 0)
	for rows.Next() {
		c := &domain.SnippetComment{}
		if err := rows.Scan(&c.ID, &c.SnippetID, &c.UserID, &c.Text, &c.ParentCommentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return &repository.ListResult[domain.SnippetComment]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// CountBySnippet returns the number of comments on a snippet.
func (r *commentRepository) CountBySnippet(ctx context.Context, snippetID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM snippet_comments WHERE snippet_id = $1`, snippetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}
