package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/repository"
)

// UserDB is the users table.
type UserDB struct {
	db *DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// Users returns the user repository.
func (db *DB) Users() *UserDB {
	return &UserDB{db: db}
}

const userColumns = `id, username, COALESCE(email, ''), password_hash, github_id, avatar_url, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	var githubID sql.NullInt64
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&githubID,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc returns these as plain errors whose text names the constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a new user. The ID and timestamps are set on the caller's struct.
// A duplicate email or GitHub ID is reported as apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	// NULLIF stores an empty email as NULL so it never collides on the UNIQUE index.
	_, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, github_id, avatar_url, created_at, updated_at)
		 VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &user, nil
}

// GetByEmail is the login lookup. Emails are compared case-insensitively.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email,
	), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return &user, nil
}

func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var user model.User
	err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID,
	), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(githubID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return &user, nil
}

// UpsertGitHub inserts or refreshes a user keyed by GitHub ID.
//
// An existing account keeps its internal ID, CreatedAt and password hash; only
// the profile fields GitHub owns (username, avatar) and a non-empty email are
// refreshed. The caller's struct is filled with the stored row afterwards.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("github_id", "github_id is required")
	}

	existing, err := u.GetByGitHubID(ctx, *user.GitHubID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	if existing == nil {
		return u.Create(ctx, user)
	}

	email := existing.Email
	if user.Email != "" {
		email = user.Email
	}
	now := time.Now().UTC()
	_, err = u.db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = NULLIF(?, ''), avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username, email, user.AvatarURL, now, existing.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
	}

	user.ID = existing.ID
	user.Email = email
	user.PasswordHash = existing.PasswordHash
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = now
	return nil
}

// Update writes username and email.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = NULLIF(?, ''), updated_at = ? WHERE id = ?`,
		user.Username, user.Email, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return checkAffected(result, apperror.NotFound("user", user.ID))
}

// Delete removes the user and, in the same transaction, every garden, bed and
// plant they own.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	return u.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM plants_in_beds WHERE bed_id IN (
				SELECT gb.id FROM garden_beds gb
				JOIN gardens g ON gb.garden_id = g.id
				WHERE g.user_id = ?)`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting plants of user %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM garden_beds WHERE garden_id IN (SELECT id FROM gardens WHERE user_id = ?)`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting beds of user %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM gardens WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting gardens of user %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
		}
		return checkAffected(result, apperror.NotFound("user", id))
	})
}
