package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// commentRepository implements repository.CommentRepository for SQLite.
type commentRepository struct {
	db *DB
}

// NewCommentRepository creates a new SQLite comment repository.
func NewCommentRepository(db *DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

// Create stores a comment.
func (r *commentRepository) Create(ctx context.Context, c *domain.SnippetComment) error {
	var parent sql.NullString
	if c.ParentCommentID != nil {
		parent = sql.NullString{String: c.ParentCommentID.String(), Valid: true}
	}

	query := `
		INSERT INTO snippet_comments (id, snippet_id, user_id, text, parent_comment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID.String(),
		c.SnippetID.String(),
		c.UserID.String(),
		c.Text,
		parent,
		formatTime(c.CreatedAt),
	)
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
		WHERE id = ?
	`

	c, err := scanComment(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if isNoRows(err) {
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
		WHERE snippet_id = ?
		ORDER BY created_at
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, snippetID.String(), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.SnippetComment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippet_comments WHERE snippet_id = ?`, snippetID.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func scanComment(row rowScanner) (*domain.SnippetComment, error) {
	var (
		id, snippetID, userID, createdAt string
		parent                           sql.NullString
	)
	c := &domain.SnippetComment{}
	if err := row.Scan(&id, &snippetID, &userID, &c.Text, &parent, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid comment id %q: %w", id, err)
	}
	if c.SnippetID, err = uuid.Parse(snippetID); err != nil {
		return nil, fmt.Errorf("invalid snippet id %q: %w", snippetID, err)
	}
	if c.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	if c.ParentCommentID, err = parseNullableUUID(parent); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}
