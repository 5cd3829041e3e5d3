// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onepiece-admin/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDevilFruitNotFound = errors.New("devil fruit not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrWarlordNotFound    = errors.New("warlord not found")
	ErrLogNotFound        = errors.New("impel down log not found")
)

const userColumns = `id, tg_user_id, tg_first_name, tg_last_name, tg_username, bounty, pending_bounty,
		impel_down_release_date, impel_down_is_permanent, crew_id, last_message_date`

// UserRepository handles user data persistence. Users are created by the bot
// process; the console reads and mutates them.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TgUserID,
		&user.TgFirstName,
		&user.TgLastName,
		&user.TgUsername,
		&user.Bounty,
		&user.PendingBounty,
		&user.ImpelDownReleaseDate,
		&user.ImpelDownIsPermanent,
		&user.CrewID,
		&user.LastMessageDate,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by primary key.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Search retrieves users matching the filter against first name, last name,
// username or telegram user id.
func (r *UserRepository) Search(ctx context.Context, filter string, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tg_first_name ILIKE '%' || $1 || '%'
		   OR tg_last_name ILIKE '%' || $1 || '%'
		   OR tg_username ILIKE '%' || $1 || '%'
		   OR tg_user_id LIKE '%' || $1 || '%'
		ORDER BY tg_first_name DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// Recent retrieves the most recently active users.
func (r *UserRepository) Recent(ctx context.Context, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY last_message_date DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*model.User, error) {
	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateArrestState sets the user's arrest flags and bounty in one statement.
func (r *UserRepository) UpdateArrestState(ctx context.Context, id int64, isPermanent bool, releaseDate *time.Time, bounty int64) (*model.User, error) {
	query := `
		UPDATE users
		SET impel_down_is_permanent = $2, impel_down_release_date = $3, bounty = $4
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, isPermanent, releaseDate, bounty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update arrest state: %w", err)
	}
	return user, nil
}

// Insert creates a user row. The bot normally owns user creation; this exists
// for seeding and tests.
func (r *UserRepository) Insert(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (tg_user_id, tg_first_name, tg_last_name, tg_username, bounty, pending_bounty,
			impel_down_release_date, impel_down_is_permanent, crew_id, last_message_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.TgUserID, user.TgFirstName, user.TgLastName, user.TgUsername,
		user.Bounty, user.PendingBounty, user.ImpelDownReleaseDate,
		user.ImpelDownIsPermanent, user.CrewID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return created, nil
}
