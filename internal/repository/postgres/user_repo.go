package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

const userColumns = `id, email_address, first_name, middle_name, last_name, password_hash,
		email_verified, active, inactive_reason, visibility, profile_picture, metadata,
		enable_notifications_for_mentions, allow_tagging, last_login, created_at, updated_at, version`

// userRepository implements repository.UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	metadata, err := encodeMetadata(user.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		user.ID,
		user.EmailAddress,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.PasswordHash,
		user.EmailVerified,
		user.Active,
		nullableString(user.InactiveReason.String()),
		string(user.Visibility),
		user.ProfilePicture,
		metadata,
		user.Setting.EnableNotificationsForMentions,
		user.Setting.AllowTagging,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
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
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email_address) = $1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// Update updates an existing user guarded by its version.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	metadata, err := encodeMetadata(user.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET first_name = $3, middle_name = $4, last_name = $5, password_hash = $6,
			email_verified = $7, active = $8, inactive_reason = $9, visibility = $10,
			profile_picture = $11, metadata = $12, enable_notifications_for_mentions = $13,
			allow_tagging = $14, last_login = $15, updated_at = $16, version = version + 1
		WHERE id = $1 AND version = $2
	`

	now := time.Now().UTC()
	result, err := r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Version,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.PasswordHash,
		user.EmailVerified,
		user.Active,
		nullableString(user.InactiveReason.String()),
		string(user.Visibility),
		user.ProfilePicture,
		metadata,
		user.Setting.EnableNotificationsForMentions,
		user.Setting.AllowTagging,
		user.LastLogin,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s at version %d", domain.ErrVersionConflict, user.ID, user.Version)
	}

	user.Version++
	user.UpdatedAt = now
	return nil
}

// IsEmailUnique reports whether the email is unused.
func (r *userRepository) IsEmailUnique(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email_address) = $1)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email uniqueness: %w", err)
	}

	return !exists, nil
}

func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var (
		reason     *string
		visibility string
		metadata   []byte
	)

	err := row.Scan(
		&user.ID,
		&user.EmailAddress,
		&user.FirstName,
		&user.MiddleName,
		&user.LastName,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.Active,
		&reason,
		&visibility,
		&user.ProfilePicture,
		&metadata,
		&user.Setting.EnableNotificationsForMentions,
		&user.Setting.AllowTagging,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if reason != nil {
		user.InactiveReason = domain.ParseInactiveReason(*reason)
	}
	user.Visibility = domain.AccountVisibility(visibility)
	if user.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}

	return user, nil
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user metadata: %w", err)
	}
	return b, nil
}

func decodeMetadata(b []byte) (map[string]string, error) {
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode user metadata: %w", err)
	}
	return m, nil
}
