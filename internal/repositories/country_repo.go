package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
)

const countryColumns = `id, name, flag, continent, created_at, updated_at`

type CountryRepository struct {
	db *database.DB
}

func NewCountryRepository(db *database.DB) *CountryRepository {
	return &CountryRepository{db: db}
}

func scanCountryRow(scanner rowScanner) (*models.Country, error) {
	var country models.Country
	var flag, continent *string

	err := scanner.Scan(
		&country.ID, &country.Name, &flag, &continent,
		&country.CreatedAt, &country.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if flag != nil {
		country.Flag = *flag
	}
	if continent != nil {
		country.Continent = *continent
	}

	return &country, nil
}

func (r *CountryRepository) GetByID(ctx context.Context, id int64) (*models.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM countries WHERE id = $1`
	return scanCountryRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *CountryRepository) List(ctx context.Context) ([]*models.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM countries ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := make([]*models.Country, 0)
	for rows.Next() {
		country, err := scanCountryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, country)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return countries, nil
}

func (r *CountryRepository) Create(ctx context.Context, country *models.Country) (*models.Country, error) {
	query := `
		INSERT INTO countries (name, flag, continent)
		VALUES ($1, $2, $3)
		RETURNING ` + countryColumns

	return scanCountryRow(r.db.Pool.QueryRow(ctx, query,
		country.Name, nullable(country.Flag), nullable(country.Continent)))
}

func (r *CountryRepository) Update(ctx context.Context, id int64, country *models.Country) (*models.Country, error) {
	query := `
		UPDATE countries
		SET name = $1, flag = $2, continent = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + countryColumns

	return scanCountryRow(r.db.Pool.QueryRow(ctx, query,
		country.Name, nullable(country.Flag), nullable(country.Continent), id))
}

// Delete removes a country together with its banknotes.
func (r *CountryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM banknotes WHERE country_id = $1`, id); err != nil {
			return database.MapPostgresError(err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM countries WHERE id = $1`, id)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		return nil
	})
}
