package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onepiece-admin/internal/model"
)

const fruitColumns = `id, category, name, model, status, owner_id, collection_date, eaten_date,
		release_date, should_show_abilities`

// DevilFruitRepository handles devil fruit and ability persistence.
type DevilFruitRepository struct {
	pool *pgxpool.Pool
}

// NewDevilFruitRepository creates a new DevilFruitRepository instance.
func NewDevilFruitRepository(pool *pgxpool.Pool) *DevilFruitRepository {
	return &DevilFruitRepository{pool: pool}
}

func scanFruit(row pgx.Row) (*model.DevilFruit, error) {
	var fruit model.DevilFruit
	err := row.Scan(
		&fruit.ID,
		&fruit.Category,
		&fruit.Name,
		&fruit.Model,
		&fruit.Status,
		&fruit.OwnerID,
		&fruit.CollectionDate,
		&fruit.EatenDate,
		&fruit.ReleaseDate,
		&fruit.ShouldShowAbilities,
	)
	if err != nil {
		return nil, err
	}
	return &fruit, nil
}

// GetByID retrieves a devil fruit by id.
func (r *DevilFruitRepository) GetByID(ctx context.Context, id int64) (*model.DevilFruit, error) {
	query := `SELECT ` + fruitColumns + ` FROM devil_fruit WHERE id = $1`

	fruit, err := scanFruit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDevilFruitNotFound
		}
		return nil, fmt.Errorf("failed to get devil fruit: %w", err)
	}
	return fruit, nil
}

// GetByNameAndModel retrieves the fruit with the given name and model,
// excluding the given fruit id (0 to exclude nothing). Model comparison
// treats NULL as equal to NULL.
func (r *DevilFruitRepository) GetByNameAndModel(ctx context.Context, name string, fruitModel *string, excludeID int64) (*model.DevilFruit, error) {
	query := `
		SELECT ` + fruitColumns + `
		FROM devil_fruit
		WHERE name = $1 AND model IS NOT DISTINCT FROM $2 AND id != $3
	`

	fruit, err := scanFruit(r.pool.QueryRow(ctx, query, name, fruitModel, excludeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDevilFruitNotFound
		}
		return nil, fmt.Errorf("failed to get devil fruit by name: %w", err)
	}
	return fruit, nil
}

// List retrieves fruits filtered by status set and a name/model substring,
// newest first. An empty status set means no status filter.
func (r *DevilFruitRepository) List(ctx context.Context, statuses []model.DevilFruitStatus, nameFilter string, limit int) ([]*model.DevilFruit, error) {
	statusValues := make([]int16, len(statuses))
	for i, s := range statuses {
		statusValues[i] = int16(s)
	}

	query := `
		SELECT ` + fruitColumns + `
		FROM devil_fruit
		WHERE (cardinality($1::smallint[]) = 0 OR status = ANY($1))
		  AND (name ILIKE '%' || $2 || '%' OR model ILIKE '%' || $2 || '%')
		ORDER BY id DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, statusValues, nameFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list devil fruits: %w", err)
	}
	defer rows.Close()

	var fruits []*model.DevilFruit
	for rows.Next() {
		fruit, err := scanFruit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan devil fruit: %w", err)
		}
		fruits = append(fruits, fruit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devil fruits: %w", err)
	}
	return fruits, nil
}

// GetAbilities retrieves the ability rows of a fruit in insertion order.
func (r *DevilFruitRepository) GetAbilities(ctx context.Context, fruitID int64) ([]*model.DevilFruitAbility, error) {
	const query = `
		SELECT id, devil_fruit_id, ability_type, value
		FROM devil_fruit_ability
		WHERE devil_fruit_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, fruitID)
	if err != nil {
		return nil, fmt.Errorf("failed to get abilities: %w", err)
	}
	defer rows.Close()

	var abilities []*model.DevilFruitAbility
	for rows.Next() {
		var a model.DevilFruitAbility
		if err := rows.Scan(&a.ID, &a.DevilFruitID, &a.AbilityType, &a.Value); err != nil {
			return nil, fmt.Errorf("failed to scan ability: %w", err)
		}
		abilities = append(abilities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating abilities: %w", err)
	}
	return abilities, nil
}

// CompletedAbilityMaps returns the ability mapping of every fruit whose
// status is Completed or later, keyed by fruit id. Used for duplicate
// detection on save.
func (r *DevilFruitRepository) CompletedAbilityMaps(ctx context.Context) (map[int64]map[model.DevilFruitAbilityType]int, error) {
	const query = `
		SELECT a.devil_fruit_id, a.ability_type, a.value
		FROM devil_fruit_ability a
		JOIN devil_fruit f ON f.id = a.devil_fruit_id
		WHERE f.status >= $1
	`

	rows, err := r.pool.Query(ctx, query, int16(model.FruitStatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to get completed ability maps: %w", err)
	}
	defer rows.Close()

	maps := make(map[int64]map[model.DevilFruitAbilityType]int)
	for rows.Next() {
		var fruitID int64
		var abilityType model.DevilFruitAbilityType
		var value int
		if err := rows.Scan(&fruitID, &abilityType, &value); err != nil {
			return nil, fmt.Errorf("failed to scan ability map row: %w", err)
		}
		if maps[fruitID] == nil {
			maps[fruitID] = make(map[model.DevilFruitAbilityType]int)
		}
		maps[fruitID][abilityType] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ability maps: %w", err)
	}
	return maps, nil
}

// SaveWithAbilities persists the fruit fields and replaces its full ability
// set in a single transaction. The original console deleted and reinserted
// abilities as separate statements, which leaves a fruit with zero ability
// rows if the process dies in between; the transaction closes that gap.
func (r *DevilFruitRepository) SaveWithAbilities(ctx context.Context, fruit *model.DevilFruit, abilities []*model.DevilFruitAbility) (*model.DevilFruit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var saved *model.DevilFruit
	if fruit.ID == 0 {
		query := `
			INSERT INTO devil_fruit (category, name, model, status, should_show_abilities)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + fruitColumns
		saved, err = scanFruit(tx.QueryRow(ctx, query,
			fruit.Category, fruit.Name, fruit.Model, fruit.Status, fruit.ShouldShowAbilities))
	} else {
		query := `
			UPDATE devil_fruit
			SET category = $2, name = $3, model = $4, status = $5
			WHERE id = $1
			RETURNING ` + fruitColumns
		saved, err = scanFruit(tx.QueryRow(ctx, query,
			fruit.ID, fruit.Category, fruit.Name, fruit.Model, fruit.Status))
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDevilFruitNotFound
		}
		return nil, fmt.Errorf("failed to save devil fruit: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM devil_fruit_ability WHERE devil_fruit_id = $1`, saved.ID); err != nil {
		return nil, fmt.Errorf("failed to delete previous abilities: %w", err)
	}

	for _, a := range abilities {
		_, err := tx.Exec(ctx,
			`INSERT INTO devil_fruit_ability (devil_fruit_id, ability_type, value) VALUES ($1, $2, $3)`,
			saved.ID, a.AbilityType, a.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ability: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit devil fruit save: %w", err)
	}
	return saved, nil
}

// Delete removes a fruit and its abilities (cascade).
func (r *DevilFruitRepository) Delete(ctx context.Context, id int64) error {
	// Status is re-checked here so a fruit that entered the release flow
	// between the service check and this statement survives.
	result, err := r.pool.Exec(ctx,
		`DELETE FROM devil_fruit WHERE id = $1 AND status <= $2`,
		id, model.FruitStatusEnabled)
	if err != nil {
		return fmt.Errorf("failed to delete devil fruit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDevilFruitNotFound
	}
	return nil
}
