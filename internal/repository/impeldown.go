package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onepiece-admin/internal/model"
)

const impelDownColumns = `id, user_id, sentence_type, release_date_time, is_permanent, bounty_action, reason, previous_bounty, new_bounty, message_sent, is_reversed, date_time`

// ImpelDownRepository handles disciplinary log persistence.
type ImpelDownRepository struct {
	pool *pgxpool.Pool
}

// NewImpelDownRepository creates a new ImpelDownRepository instance.
func NewImpelDownRepository(pool *pgxpool.Pool) *ImpelDownRepository {
	return &ImpelDownRepository{pool: pool}
}

func scanImpelDownLog(row pgx.Row) (*model.ImpelDownLog, error) {
	var l model.ImpelDownLog
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.SentenceType,
		&l.ReleaseDateTime,
		&l.IsPermanent,
		&l.BountyAction,
		&l.Reason,
		&l.PreviousBounty,
		&l.NewBounty,
		&l.MessageSent,
		&l.IsReversed,
		&l.DateTime,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID retrieves a log entry by id.
func (r *ImpelDownRepository) GetByID(ctx context.Context, id int64) (*model.ImpelDownLog, error) {
	query := `SELECT ` + impelDownColumns + ` FROM impel_down_log WHERE id = $1`

	l, err := scanImpelDownLog(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to get impel down log: %w", err)
	}
	return l, nil
}

// Recent retrieves the newest log entries.
func (r *ImpelDownRepository) Recent(ctx context.Context, limit int) ([]*model.ImpelDownLog, error) {
	query := `SELECT ` + impelDownColumns + ` FROM impel_down_log ORDER BY date_time DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list impel down logs: %w", err)
	}
	defer rows.Close()

	return collectImpelDownLogs(rows)
}

// Search retrieves log entries matching the filter against the subject's
// names, username or telegram id, or the log's own reason, sentence and
// bounty action, newest first.
func (r *ImpelDownRepository) Search(ctx context.Context, filter string, limit int) ([]*model.ImpelDownLog, error) {
	query := `
		SELECT l.id, l.user_id, l.sentence_type, l.release_date_time, l.is_permanent, l.bounty_action, l.reason, l.previous_bounty, l.new_bounty, l.message_sent, l.is_reversed, l.date_time
		FROM impel_down_log l
		JOIN users u ON u.id = l.user_id
		WHERE u.tg_first_name ILIKE '%' || $1 || '%'
		   OR u.tg_last_name ILIKE '%' || $1 || '%'
		   OR u.tg_username ILIKE '%' || $1 || '%'
		   OR u.tg_user_id LIKE '%' || $1 || '%'
		   OR l.reason ILIKE '%' || $1 || '%'
		   OR l.sentence_type ILIKE '%' || $1 || '%'
		   OR l.bounty_action ILIKE '%' || $1 || '%'
		ORDER BY l.date_time DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search impel down logs: %w", err)
	}
	defer rows.Close()

	return collectImpelDownLogs(rows)
}

func collectImpelDownLogs(rows pgx.Rows) ([]*model.ImpelDownLog, error) {
	var logs []*model.ImpelDownLog
	for rows.Next() {
		l, err := scanImpelDownLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan impel down log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating impel down logs: %w", err)
	}
	return logs, nil
}

// Apply atomically updates the user's arrest state and bounty and inserts the
// audit log entry. Either both rows change or neither does.
func (r *ImpelDownRepository) Apply(ctx context.Context, l *model.ImpelDownLog) (*model.ImpelDownLog, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userQuery := `
		UPDATE users
		SET impel_down_is_permanent = $2, impel_down_release_date = $3, bounty = $4
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, userQuery, l.UserID, l.IsPermanent, l.ReleaseDateTime, l.NewBounty)
	if err != nil {
		return nil, fmt.Errorf("failed to update user arrest state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	logQuery := `
		INSERT INTO impel_down_log (user_id, sentence_type, release_date_time, is_permanent, bounty_action, reason, previous_bounty, new_bounty, message_sent, is_reversed, date_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE, $9)
		RETURNING ` + impelDownColumns

	created, err := scanImpelDownLog(tx.QueryRow(ctx, logQuery,
		l.UserID, l.SentenceType, l.ReleaseDateTime, l.IsPermanent,
		l.BountyAction, l.Reason, l.PreviousBounty, l.NewBounty, l.DateTime))
	if err != nil {
		return nil, fmt.Errorf("failed to insert impel down log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// Reverse restores the recorded bounty delta to the user and marks the log
// entry reversed, atomically. The is_reversed guard makes a second reversal
// of the same entry fail with ErrLogNotFound.
func (r *ImpelDownRepository) Reverse(ctx context.Context, logID int64) (*model.ImpelDownLog, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	logQuery := `
		UPDATE impel_down_log
		SET is_reversed = TRUE
		WHERE id = $1 AND NOT is_reversed
		RETURNING ` + impelDownColumns

	reversed, err := scanImpelDownLog(tx.QueryRow(ctx, logQuery, logID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to mark impel down log reversed: %w", err)
	}

	// Only the bounty delta is restored. The arrest state is left alone so
	// reversing a bounty-only log never frees an arrested user.
	userQuery := `
		UPDATE users
		SET bounty = bounty + $2
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, userQuery, reversed.UserID, reversed.LostBounty())
	if err != nil {
		return nil, fmt.Errorf("failed to restore user bounty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return reversed, nil
}

// MarkMessageSent records that the notification for a log entry was delivered.
func (r *ImpelDownRepository) MarkMessageSent(ctx context.Context, logID int64) error {
	const query = `UPDATE impel_down_log SET message_sent = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, logID)
	if err != nil {
		return fmt.Errorf("failed to mark impel down message sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLogNotFound
	}
	return nil
}
