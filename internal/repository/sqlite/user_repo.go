package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

const userColumns = `id, email_address, first_name, middle_name, last_name, password_hash,
		email_verified, active, inactive_reason, visibility, profile_picture, metadata,
		enable_notifications_for_mentions, allow_tagging, last_login, created_at, updated_at, version`

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	metadata, err := json.Marshal(nonNilMetadata(user.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode user metadata: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID.String(),
		user.EmailAddress,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.PasswordHash,
		boolToInt(user.EmailVerified),
		boolToInt(user.Active),
		nullableString(user.InactiveReason.String()),
		string(user.Visibility),
		user.ProfilePicture,
		string(metadata),
		boolToInt(user.Setting.EnableNotificationsForMentions),
		boolToInt(user.Setting.AllowTagging),
		formatTime(user.LastLogin),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s", domain.ErrUserAlreadyExists, user.EmailAddress)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_address = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// Update updates an existing user guarded by its version.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	metadata, err := json.Marshal(nonNilMetadata(user.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode user metadata: %w", err)
	}

	query := `
		UPDATE users
		SET first_name = ?, middle_name = ?, last_name = ?, password_hash = ?,
			email_verified = ?, active = ?, inactive_reason = ?, visibility = ?,
			profile_picture = ?, metadata = ?, enable_notifications_for_mentions = ?,
			allow_tagging = ?, last_login = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.PasswordHash,
		boolToInt(user.EmailVerified),
		boolToInt(user.Active),
		nullableString(user.InactiveReason.String()),
		string(user.Visibility),
		user.ProfilePicture,
		string(metadata),
		boolToInt(user.Setting.EnableNotificationsForMentions),
		boolToInt(user.Setting.AllowTagging),
		formatTime(user.LastLogin),
		formatTime(now),
		user.ID.String(),
		user.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s at version %d", domain.ErrVersionConflict, user.ID, user.Version)
	}

	user.Version++
	user.UpdatedAt = now
	return nil
}

// IsEmailUnique reports whether the email is unused.
func (r *userRepository) IsEmailUnique(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email_address = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	return count == 0, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var (
		id                              string
		emailVerified, active           int
		reason                          sql.NullString
		visibility, metadata            string
		notifyMentions, allowTagging    int
		lastLogin, createdAt, updatedAt string
	)

	err := row.Scan(
		&id,
		&user.EmailAddress,
		&user.FirstName,
		&user.MiddleName,
		&user.LastName,
		&user.PasswordHash,
		&emailVerified,
		&active,
		&reason,
		&visibility,
		&user.ProfilePicture,
		&metadata,
		&notifyMentions,
		&allowTagging,
		&lastLogin,
		&createdAt,
		&updatedAt,
		&user.Version,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	user.EmailVerified = emailVerified != 0
	user.Active = active != 0
	if reason.Valid {
		user.InactiveReason = domain.ParseInactiveReason(reason.String)
	}
	user.Visibility = domain.AccountVisibility(visibility)
	user.Metadata = map[string]string{}
	if err := json.Unmarshal([]byte(metadata), &user.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode user metadata: %w", err)
	}
	user.Setting.EnableNotificationsForMentions = notifyMentions != 0
	user.Setting.AllowTagging = allowTagging != 0
	user.LastLogin = parseTime(lastLogin)
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)

	return user, nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
