package repositories

import (
	"context"
	"fmt"

	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
)

type CharacteristicRepository struct {
	db *database.DB
}

func NewCharacteristicRepository(db *database.DB) *CharacteristicRepository {
	return &CharacteristicRepository{db: db}
}

func scanCharacteristicRow(scanner rowScanner) (*models.Characteristic, error) {
	var c models.Characteristic
	var description *string

	if err := scanner.Scan(&c.ID, &c.Name, &description, &c.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}

	if description != nil {
		c.Description = *description
	}

	return &c, nil
}

func (r *CharacteristicRepository) GetByID(ctx context.Context, id int64) (*models.Characteristic, error) {
	query := `SELECT id, name, description, created_at FROM characteristics WHERE id = $1`
	return scanCharacteristicRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *CharacteristicRepository) List(ctx context.Context) ([]*models.Characteristic, error) {
	query := `SELECT id, name, description, created_at FROM characteristics ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query characteristics: %w", err)
	}
	defer rows.Close()

	characteristics := make([]*models.Characteristic, 0)
	for rows.Next() {
		c, err := scanCharacteristicRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan characteristic: %w", err)
		}
		characteristics = append(characteristics, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return characteristics, nil
}

func (r *CharacteristicRepository) Create(ctx context.Context, c *models.Characteristic) (*models.Characteristic, error) {
	query := `
		INSERT INTO characteristics (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at`

	return scanCharacteristicRow(r.db.Pool.QueryRow(ctx, query,
		c.Name, nullable(c.Description)))
}

func (r *CharacteristicRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM characteristics WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
