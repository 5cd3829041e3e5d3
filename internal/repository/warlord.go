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

const warlordColumns = `id, user_id, epithet, reason, date, end_date, original_end_date, revoke_reason`

// WarlordRepository handles warlord grant persistence.
type WarlordRepository struct {
	pool *pgxpool.Pool
}

// NewWarlordRepository creates a new WarlordRepository instance.
func NewWarlordRepository(pool *pgxpool.Pool) *WarlordRepository {
	return &WarlordRepository{pool: pool}
}

func scanWarlord(row pgx.Row) (*model.Warlord, error) {
	var w model.Warlord
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Epithet,
		&w.Reason,
		&w.Date,
		&w.EndDate,
		&w.OriginalEndDate,
		&w.RevokeReason,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByID retrieves a warlord grant by id.
func (r *WarlordRepository) GetByID(ctx context.Context, id int64) (*model.Warlord, error) {
	query := `SELECT ` + warlordColumns + ` FROM warlord WHERE id = $1`

	w, err := scanWarlord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWarlordNotFound
		}
		return nil, fmt.Errorf("failed to get warlord: %w", err)
	}
	return w, nil
}

// ActiveCount returns the number of currently active grants.
func (r *WarlordRepository) ActiveCount(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM warlord WHERE end_date > $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active warlords: %w", err)
	}
	return count, nil
}

// GetActiveByUser retrieves the latest active grant held by a user, or
// ErrWarlordNotFound if the user holds none.
func (r *WarlordRepository) GetActiveByUser(ctx context.Context, userID int64, now time.Time) (*model.Warlord, error) {
	query := `
		SELECT ` + warlordColumns + `
		FROM warlord
		WHERE user_id = $1 AND end_date > $2
		ORDER BY end_date DESC
		LIMIT 1
	`

	w, err := scanWarlord(r.pool.QueryRow(ctx, query, userID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWarlordNotFound
		}
		return nil, fmt.Errorf("failed to get active warlord: %w", err)
	}
	return w, nil
}

// GetActiveByEpithet retrieves an active grant with the given epithet held by
// a user other than excludeUserID. Used for the epithet uniqueness check.
func (r *WarlordRepository) GetActiveByEpithet(ctx context.Context, epithet string, excludeUserID int64, now time.Time) (*model.Warlord, error) {
	query := `
		SELECT ` + warlordColumns + `
		FROM warlord
		WHERE epithet = $1 AND user_id != $2 AND end_date > $3
		LIMIT 1
	`

	w, err := scanWarlord(r.pool.QueryRow(ctx, query, epithet, excludeUserID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWarlordNotFound
		}
		return nil, fmt.Errorf("failed to get warlord by epithet: %w", err)
	}
	return w, nil
}

// List retrieves grants, optionally restricted to active ones, newest first.
func (r *WarlordRepository) List(ctx context.Context, onlyActive bool, now time.Time, limit int) ([]*model.Warlord, error) {
	query := `SELECT ` + warlordColumns + ` FROM warlord`
	args := []any{limit}
	if onlyActive {
		query += ` WHERE end_date > $2`
		args = append(args, now)
	}
	query += ` ORDER BY date DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list warlords: %w", err)
	}
	defer rows.Close()

	return collectWarlords(rows)
}

// Search retrieves grants matching the filter against the holder's names,
// username, telegram id, the epithet or the appointment reason.
func (r *WarlordRepository) Search(ctx context.Context, filter string, onlyActive bool, now time.Time, limit int) ([]*model.Warlord, error) {
	query := `
		SELECT w.id, w.user_id, w.epithet, w.reason, w.date, w.end_date, w.original_end_date, w.revoke_reason
		FROM warlord w
		JOIN users u ON u.id = w.user_id
		WHERE (u.tg_first_name ILIKE '%' || $1 || '%'
		   OR u.tg_last_name ILIKE '%' || $1 || '%'
		   OR u.tg_username ILIKE '%' || $1 || '%'
		   OR u.tg_user_id LIKE '%' || $1 || '%'
		   OR w.epithet ILIKE '%' || $1 || '%'
		   OR w.reason ILIKE '%' || $1 || '%')
	`
	args := []any{filter, limit}
	if onlyActive {
		query += ` AND w.end_date > $3`
		args = append(args, now)
	}
	query += ` ORDER BY w.date DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search warlords: %w", err)
	}
	defer rows.Close()

	return collectWarlords(rows)
}

func collectWarlords(rows pgx.Rows) ([]*model.Warlord, error) {
	var warlords []*model.Warlord
	for rows.Next() {
		w, err := scanWarlord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warlord: %w", err)
		}
		warlords = append(warlords, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warlords: %w", err)
	}
	return warlords, nil
}

// Insert creates a new grant.
func (r *WarlordRepository) Insert(ctx context.Context, w *model.Warlord) (*model.Warlord, error) {
	query := `
		INSERT INTO warlord (user_id, epithet, reason, date, end_date, original_end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + warlordColumns

	created, err := scanWarlord(r.pool.QueryRow(ctx, query,
		w.UserID, w.Epithet, w.Reason, w.Date, w.EndDate, w.OriginalEndDate))
	if err != nil {
		return nil, fmt.Errorf("failed to insert warlord: %w", err)
	}
	return created, nil
}

// Update persists an edited grant. The original end date never changes.
func (r *WarlordRepository) Update(ctx context.Context, w *model.Warlord) (*model.Warlord, error) {
	query := `
		UPDATE warlord
		SET epithet = $2, reason = $3, end_date = $4
		WHERE id = $1
		RETURNING ` + warlordColumns

	updated, err := scanWarlord(r.pool.QueryRow(ctx, query, w.ID, w.Epithet, w.Reason, w.EndDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWarlordNotFound
		}
		return nil, fmt.Errorf("failed to update warlord: %w", err)
	}
	return updated, nil
}

// Revoke ends a grant immediately and records the revocation reason. The
// end_date guard makes a double revocation fail instead of re-applying.
func (r *WarlordRepository) Revoke(ctx context.Context, id int64, reason string, now time.Time) (*model.Warlord, error) {
	query := `
		UPDATE warlord
		SET end_date = $3, revoke_reason = $2
		WHERE id = $1 AND end_date > $3
		RETURNING ` + warlordColumns

	w, err := scanWarlord(r.pool.QueryRow(ctx, query, id, reason, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWarlordNotFound
		}
		return nil, fmt.Errorf("failed to revoke warlord: %w", err)
	}
	return w, nil
}
