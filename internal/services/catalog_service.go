package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/numisma/numisma/internal/models"
)

// CountryRepository defines the storage operations for catalog countries.
type CountryRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Country, error)
	List(ctx context.Context) ([]*models.Country, error)
	Create(ctx context.Context, country *models.Country) (*models.Country, error)
	Update(ctx context.Context, id int64, country *models.Country) (*models.Country, error)
	Delete(ctx context.Context, id int64) error
}

// BanknoteRepository defines the storage operations for banknotes.
type BanknoteRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Banknote, error)
	List(ctx context.Context, limit, offset int) ([]*models.Banknote, error)
	ListByCountry(ctx context.Context, countryID int64) ([]*models.Banknote, error)
	Create(ctx context.Context, note *models.Banknote) (*models.Banknote, error)
	Update(ctx context.Context, id int64, note *models.Banknote) (*models.Banknote, error)
	Delete(ctx context.Context, id int64) error
}

// CharacteristicRepository defines the storage operations for reusable
// banknote characteristics.
type CharacteristicRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Characteristic, error)
	List(ctx context.Context) ([]*models.Characteristic, error)
	Create(ctx context.Context, c *models.Characteristic) (*models.Characteristic, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogService manages the collection inventory: countries, banknotes and
// characteristics.
type CatalogService struct {
	countries       CountryRepository
	banknotes       BanknoteRepository
	characteristics CharacteristicRepository
	logger          *slog.Logger
}

func NewCatalogService(
	countries CountryRepository,
	banknotes BanknoteRepository,
	characteristics CharacteristicRepository,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		countries:       countries,
		banknotes:       banknotes,
		characteristics: characteristics,
		logger:          logger,
	}
}

func (s *CatalogService) ListCountries(ctx context.Context) ([]*models.Country, error) {
	countries, err := s.countries.List(ctx)
	if err != nil {
		s.logger.Error("failed to list countries", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return countries, nil
}

func (s *CatalogService) GetCountry(ctx context.Context, id int64) (*models.Country, error) {
	country, err := s.countries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get country", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return country, nil
}

func (s *CatalogService) CreateCountry(ctx context.Context, country *models.Country) (*models.Country, error) {
	created, err := s.countries.Create(ctx, country)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create country", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

func (s *CatalogService) UpdateCountry(ctx context.Context, id int64, country *models.Country) (*models.Country, error) {
	updated, err := s.countries.Update(ctx, id, country)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to update country", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return updated, nil
}

// DeleteCountry removes a country and its banknotes.
func (s *CatalogService) DeleteCountry(ctx context.Context, id int64) error {
	if err := s.countries.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete country", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *CatalogService) ListBanknotes(ctx context.Context, limit, offset int) ([]*models.Banknote, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	notes, err := s.banknotes.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list banknotes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return notes, nil
}

func (s *CatalogService) ListBanknotesByCountry(ctx context.Context, countryID int64) ([]*models.Banknote, error) {
	if _, err := s.countries.GetByID(ctx, countryID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get country", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	notes, err := s.banknotes.ListByCountry(ctx, countryID)
	if err != nil {
		s.logger.Error("failed to list banknotes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return notes, nil
}

func (s *CatalogService) GetBanknote(ctx context.Context, id int64) (*models.Banknote, error) {
	note, err := s.banknotes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get banknote", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return note, nil
}

// CreateBanknote stores a new note after confirming its country exists, so
// the handler can distinguish a bad country id from a storage fault.
func (s *CatalogService) CreateBanknote(ctx context.Context, note *models.Banknote) (*models.Banknote, error) {
	if _, err := s.countries.GetByID(ctx, note.CountryID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to get country", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.banknotes.Create(ctx, note)
	if err != nil {
		s.logger.Error("failed to create banknote", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

func (s *CatalogService) UpdateBanknote(ctx context.Context, id int64, note *models.Banknote) (*models.Banknote, error) {
	if _, err := s.countries.GetByID(ctx, note.CountryID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to get country", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	updated, err := s.banknotes.Update(ctx, id, note)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update banknote", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return updated, nil
}

func (s *CatalogService) DeleteBanknote(ctx context.Context, id int64) error {
	if err := s.banknotes.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete banknote", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *CatalogService) ListCharacteristics(ctx context.Context) ([]*models.Characteristic, error) {
	characteristics, err := s.characteristics.List(ctx)
	if err != nil {
		s.logger.Error("failed to list characteristics", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return characteristics, nil
}

func (s *CatalogService) CreateCharacteristic(ctx context.Context, c *models.Characteristic) (*models.Characteristic, error) {
	created, err := s.characteristics.Create(ctx, c)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create characteristic", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

func (s *CatalogService) DeleteCharacteristic(ctx context.Context, id int64) error {
	if err := s.characteristics.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete characteristic", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
