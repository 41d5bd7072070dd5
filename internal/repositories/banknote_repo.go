package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
)

const banknoteColumns = `b.id, b.obverse, b.reverse, b.denomination, b.price,
	b.country_id, b.characteristics, b.created_at, b.updated_at`

type BanknoteRepository struct {
	db *database.DB
}

func NewBanknoteRepository(db *database.DB) *BanknoteRepository {
	return &BanknoteRepository{db: db}
}

func scanBanknoteRow(scanner rowScanner) (*models.Banknote, error) {
	var note models.Banknote

	err := scanner.Scan(
		&note.ID, &note.Obverse, &note.Reverse, &note.Denomination, &note.Price,
		&note.CountryID, pq.Array(&note.Characteristics),
		&note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if note.Characteristics == nil {
		note.Characteristics = []string{}
	}

	return &note, nil
}

func scanBanknoteRowWithCountry(scanner rowScanner) (*models.Banknote, error) {
	var note models.Banknote
	var country models.Country
	var flag, continent *string

	err := scanner.Scan(
		&note.ID, &note.Obverse, &note.Reverse, &note.Denomination, &note.Price,
		&note.CountryID, pq.Array(&note.Characteristics),
		&note.CreatedAt, &note.UpdatedAt,
		&country.ID, &country.Name, &flag, &continent,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if note.Characteristics == nil {
		note.Characteristics = []string{}
	}
	if flag != nil {
		country.Flag = *flag
	}
	if continent != nil {
		country.Continent = *continent
	}
	note.Country = &country

	return &note, nil
}

func (r *BanknoteRepository) GetByID(ctx context.Context, id int64) (*models.Banknote, error) {
	query := `
		SELECT ` + banknoteColumns + `, c.id, c.name, c.flag, c.continent
		FROM banknotes b
		JOIN countries c ON c.id = b.country_id
		WHERE b.id = $1`

	return scanBanknoteRowWithCountry(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *BanknoteRepository) List(ctx context.Context, limit, offset int) ([]*models.Banknote, error) {
	query := `
		SELECT ` + banknoteColumns + `, c.id, c.name, c.flag, c.continent
		FROM banknotes b
		JOIN countries c ON c.id = b.country_id
		ORDER BY b.id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query banknotes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Banknote, 0)
	for rows.Next() {
		note, err := scanBanknoteRowWithCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan banknote: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notes, nil
}

func (r *BanknoteRepository) ListByCountry(ctx context.Context, countryID int64) ([]*models.Banknote, error) {
	query := `
		SELECT ` + banknoteColumns + `
		FROM banknotes b
		WHERE b.country_id = $1
		ORDER BY b.id`

	rows, err := r.db.Pool.Query(ctx, query, countryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query banknotes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Banknote, 0)
	for rows.Next() {
		note, err := scanBanknoteRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan banknote: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notes, nil
}

func (r *BanknoteRepository) Create(ctx context.Context, note *models.Banknote) (*models.Banknote, error) {
	query := `
		INSERT INTO banknotes (obverse, reverse, denomination, price, country_id, characteristics)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, obverse, reverse, denomination, price, country_id, characteristics,
			created_at, updated_at`

	return scanBanknoteRow(r.db.Pool.QueryRow(ctx, query,
		note.Obverse, note.Reverse, note.Denomination, note.Price,
		note.CountryID, pq.Array(note.Characteristics)))
}

func (r *BanknoteRepository) Update(ctx context.Context, id int64, note *models.Banknote) (*models.Banknote, error) {
	query := `
		UPDATE banknotes
		SET obverse = $1, reverse = $2, denomination = $3, price = $4,
			country_id = $5, characteristics = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING id, obverse, reverse, denomination, price, country_id, characteristics,
			created_at, updated_at`

	return scanBanknoteRow(r.db.Pool.QueryRow(ctx, query,
		note.Obverse, note.Reverse, note.Denomination, note.Price,
		note.CountryID, pq.Array(note.Characteristics), id))
}

func (r *BanknoteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM banknotes WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
