package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/numisma/numisma/internal/models"
	pkghttp "github.com/numisma/numisma/pkg/http"
)

// CatalogServiceInterface defines the inventory operations.
type CatalogServiceInterface interface {
	ListCountries(ctx context.Context) ([]*models.Country, error)
	GetCountry(ctx context.Context, id int64) (*models.Country, error)
	CreateCountry(ctx context.Context, country *models.Country) (*models.Country, error)
	UpdateCountry(ctx context.Context, id int64, country *models.Country) (*models.Country, error)
	DeleteCountry(ctx context.Context, id int64) error

	ListBanknotes(ctx context.Context, limit, offset int) ([]*models.Banknote, error)
	ListBanknotesByCountry(ctx context.Context, countryID int64) ([]*models.Banknote, error)
	GetBanknote(ctx context.Context, id int64) (*models.Banknote, error)
	CreateBanknote(ctx context.Context, note *models.Banknote) (*models.Banknote, error)
	UpdateBanknote(ctx context.Context, id int64, note *models.Banknote) (*models.Banknote, error)
	DeleteBanknote(ctx context.Context, id int64) error

	ListCharacteristics(ctx context.Context) ([]*models.Characteristic, error)
	CreateCharacteristic(ctx context.Context, c *models.Characteristic) (*models.Characteristic, error)
	DeleteCharacteristic(ctx context.Context, id int64) error
}

// CatalogHandler handles the banknote inventory endpoints.
type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Request DTOs

type CountryRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	Flag      string `json:"flag" validate:"omitempty,max=200"`
	Continent string `json:"continent" validate:"omitempty,max=50"`
}

type BanknoteRequest struct {
	Obverse         string   `json:"obverse" validate:"required,max=500"`
	Reverse         string   `json:"reverse" validate:"required,max=500"`
	Denomination    string   `json:"denomination" validate:"required,max=100"`
	Price           float64  `json:"price" validate:"gte=0"`
	CountryID       int64    `json:"country_id" validate:"required,gt=0"`
	Characteristics []string `json:"characteristics" validate:"omitempty,dive,max=100"`
}

type CharacteristicRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeCatalogError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, notFoundMsg)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "conflict", "A record with that name already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Referenced country does not exist")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Countries

func (h *CatalogHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.ListCountries(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (h *CatalogHandler) GetCountry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid country id")
		return
	}

	country, err := h.service.GetCountry(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err, "Country not found")
		return
	}
	writeJSON(w, http.StatusOK, country)
}

func (h *CatalogHandler) CreateCountry(w http.ResponseWriter, r *http.Request) {
	var req CountryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	country, err := h.service.CreateCountry(r.Context(), &models.Country{
		Name: req.Name, Flag: req.Flag, Continent: req.Continent,
	})
	if err != nil {
		writeCatalogError(w, err, "Country not found")
		return
	}
	writeJSON(w, http.StatusCreated, country)
}

func (h *CatalogHandler) UpdateCountry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid country id")
		return
	}

	var req CountryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	country, err := h.service.UpdateCountry(r.Context(), id, &models.Country{
		Name: req.Name, Flag: req.Flag, Continent: req.Continent,
	})
	if err != nil {
		writeCatalogError(w, err, "Country not found")
		return
	}
	writeJSON(w, http.StatusOK, country)
}

func (h *CatalogHandler) DeleteCountry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid country id")
		return
	}

	if err := h.service.DeleteCountry(r.Context(), id); err != nil {
		writeCatalogError(w, err, "Country not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Banknotes

func (h *CatalogHandler) ListBanknotes(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("country_id"); raw != "" {
		countryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid country id")
			return
		}

		notes, err := h.service.ListBanknotesByCountry(r.Context(), countryID)
		if err != nil {
			writeCatalogError(w, err, "Country not found")
			return
		}
		writeJSON(w, http.StatusOK, notes)
		return
	}

	notes, err := h.service.ListBanknotes(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *CatalogHandler) GetBanknote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid banknote id")
		return
	}

	note, err := h.service.GetBanknote(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err, "Banknote not found")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *CatalogHandler) CreateBanknote(w http.ResponseWriter, r *http.Request) {
	var req BanknoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	note, err := h.service.CreateBanknote(r.Context(), &models.Banknote{
		Obverse:         req.Obverse,
		Reverse:         req.Reverse,
		Denomination:    req.Denomination,
		Price:           req.Price,
		CountryID:       req.CountryID,
		Characteristics: req.Characteristics,
	})
	if err != nil {
		writeCatalogError(w, err, "Banknote not found")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *CatalogHandler) UpdateBanknote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid banknote id")
		return
	}

	var req BanknoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	note, err := h.service.UpdateBanknote(r.Context(), id, &models.Banknote{
		Obverse:         req.Obverse,
		Reverse:         req.Reverse,
		Denomination:    req.Denomination,
		Price:           req.Price,
		CountryID:       req.CountryID,
		Characteristics: req.Characteristics,
	})
	if err != nil {
		writeCatalogError(w, err, "Banknote not found")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *CatalogHandler) DeleteBanknote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid banknote id")
		return
	}

	if err := h.service.DeleteBanknote(r.Context(), id); err != nil {
		writeCatalogError(w, err, "Banknote not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Characteristics

func (h *CatalogHandler) ListCharacteristics(w http.ResponseWriter, r *http.Request) {
	characteristics, err := h.service.ListCharacteristics(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, characteristics)
}

func (h *CatalogHandler) CreateCharacteristic(w http.ResponseWriter, r *http.Request) {
	var req CharacteristicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	c, err := h.service.CreateCharacteristic(r.Context(), &models.Characteristic{
		Name: req.Name, Description: req.Description,
	})
	if err != nil {
		writeCatalogError(w, err, "Characteristic not found")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) DeleteCharacteristic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid characteristic id")
		return
	}

	if err := h.service.DeleteCharacteristic(r.Context(), id); err != nil {
		writeCatalogError(w, err, "Characteristic not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
