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

const predictionColumns = `id, type, status, question, send_date, end_date, cut_off_date,
		refund_wager, max_refund_wager, allow_multiple_choices, can_withdraw_bet, result_set_date`

// PredictionRepository handles prediction and option persistence.
type PredictionRepository struct {
	pool *pgxpool.Pool
}

// NewPredictionRepository creates a new PredictionRepository instance.
func NewPredictionRepository(pool *pgxpool.Pool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

func scanPrediction(row pgx.Row) (*model.Prediction, error) {
	var p model.Prediction
	err := row.Scan(
		&p.ID,
		&p.Type,
		&p.Status,
		&p.Question,
		&p.SendDate,
		&p.EndDate,
		&p.CutOffDate,
		&p.RefundWager,
		&p.MaxRefundWager,
		&p.AllowMultipleChoices,
		&p.CanWithdrawBet,
		&p.ResultSetDate,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a prediction by id.
func (r *PredictionRepository) GetByID(ctx context.Context, id int64) (*model.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM prediction WHERE id = $1`

	p, err := scanPrediction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

// GetByQuestion retrieves the prediction with the given question text,
// excluding the given id (0 to exclude nothing).
func (r *PredictionRepository) GetByQuestion(ctx context.Context, question string, excludeID int64) (*model.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM prediction WHERE question = $1 AND id != $2`

	p, err := scanPrediction(r.pool.QueryRow(ctx, query, question, excludeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction by question: %w", err)
	}
	return p, nil
}

// List retrieves predictions matching the question filter, newest first.
func (r *PredictionRepository) List(ctx context.Context, filter string, limit int) ([]*model.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM prediction
		WHERE question ILIKE '%' || $1 || '%'
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return predictions, nil
}

// GetOptions retrieves a prediction's options in insertion order.
func (r *PredictionRepository) GetOptions(ctx context.Context, predictionID int64) ([]*model.PredictionOption, error) {
	const query = `
		SELECT id, prediction_id, option, is_correct
		FROM prediction_option
		WHERE prediction_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	defer rows.Close()

	var options []*model.PredictionOption
	for rows.Next() {
		var o model.PredictionOption
		if err := rows.Scan(&o.ID, &o.PredictionID, &o.Option, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

// SaveWithOptions persists the prediction and, when replaceOptions is set,
// swaps the full option list in the same transaction. Options are left
// untouched otherwise so already-set is_correct flags survive edits.
func (r *PredictionRepository) SaveWithOptions(ctx context.Context, p *model.Prediction, options []string, replaceOptions bool) (*model.Prediction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var saved *model.Prediction
	if p.ID == 0 {
		query := `
			INSERT INTO prediction (type, status, question, send_date, end_date, cut_off_date,
				refund_wager, max_refund_wager, allow_multiple_choices, can_withdraw_bet)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING ` + predictionColumns
		saved, err = scanPrediction(tx.QueryRow(ctx, query,
			p.Type, p.Status, p.Question, p.SendDate, p.EndDate, p.CutOffDate,
			p.RefundWager, p.MaxRefundWager, p.AllowMultipleChoices, p.CanWithdrawBet))
	} else {
		query := `
			UPDATE prediction
			SET type = $2, question = $3, send_date = $4, end_date = $5, cut_off_date = $6,
				refund_wager = $7, max_refund_wager = $8, allow_multiple_choices = $9, can_withdraw_bet = $10
			WHERE id = $1
			RETURNING ` + predictionColumns
		saved, err = scanPrediction(tx.QueryRow(ctx, query,
			p.ID, p.Type, p.Question, p.SendDate, p.EndDate, p.CutOffDate,
			p.RefundWager, p.MaxRefundWager, p.AllowMultipleChoices, p.CanWithdrawBet))
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}

	if replaceOptions {
		if _, err := tx.Exec(ctx, `DELETE FROM prediction_option WHERE prediction_id = $1`, saved.ID); err != nil {
			return nil, fmt.Errorf("failed to delete previous options: %w", err)
		}
		for _, text := range options {
			_, err := tx.Exec(ctx,
				`INSERT INTO prediction_option (prediction_id, option, is_correct) VALUES ($1, $2, FALSE)`,
				saved.ID, text)
			if err != nil {
				return nil, fmt.Errorf("failed to insert option: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit prediction save: %w", err)
	}
	return saved, nil
}

// AdvanceStatus moves a prediction to the given status, stamping the date
// column tied to the transition. The WHERE clause re-checks the current
// status so a concurrent double-submit fails instead of applying twice.
func (r *PredictionRepository) AdvanceStatus(ctx context.Context, id int64, from, to model.PredictionStatus, now time.Time) (*model.Prediction, error) {
	var stamp string
	switch to {
	case model.PredictionStatusSent:
		stamp = `send_date = COALESCE(send_date, $3)`
	case model.PredictionStatusBetsClosed:
		stamp = `end_date = $3`
	case model.PredictionStatusResultSet:
		stamp = `result_set_date = $3`
	default:
		return nil, fmt.Errorf("invalid target status %s", to)
	}

	query := `
		UPDATE prediction
		SET status = $2, ` + stamp + `
		WHERE id = $1 AND status = $4
		RETURNING ` + predictionColumns

	p, err := scanPrediction(r.pool.QueryRow(ctx, query, id, to, now, from))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to advance prediction status: %w", err)
	}
	return p, nil
}

// SetResults marks the options with the given ids correct and advances the
// prediction to ResultSet, in one transaction.
func (r *PredictionRepository) SetResults(ctx context.Context, id int64, correctOptionIDs []int64, now time.Time) (*model.Prediction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE prediction_option SET is_correct = (id = ANY($2)) WHERE prediction_id = $1`,
		id, correctOptionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to set correct options: %w", err)
	}

	query := `
		UPDATE prediction
		SET status = $2, result_set_date = $3
		WHERE id = $1 AND status < $2
		RETURNING ` + predictionColumns

	p, err := scanPrediction(tx.QueryRow(ctx, query, id, model.PredictionStatusResultSet, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to set prediction results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit results: %w", err)
	}
	return p, nil
}

// Delete removes a prediction and its options (cascade). The status check is
// part of the statement so a stale delete is a no-op reported to the caller.
func (r *PredictionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM prediction WHERE id = $1 AND status = $2`, id, model.PredictionStatusNew)
	if err != nil {
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPredictionNotFound
	}
	return nil
}
