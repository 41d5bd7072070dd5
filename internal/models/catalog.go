package models

import "time"

// Country is a catalog entry banknotes reference.
type Country struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Flag      string    `json:"flag,omitempty"` // emoji or image reference
	Continent string    `json:"continent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Banknote is a single collectible note.
type Banknote struct {
	ID              int64     `json:"id"`
	Obverse         string    `json:"obverse"`
	Reverse         string    `json:"reverse"`
	Denomination    string    `json:"denomination"`
	Price           float64   `json:"price"`
	CountryID       int64     `json:"country_id"`
	Characteristics []string  `json:"characteristics"` // free-form tags, stored as text[]
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Populated on reads that join the countries table
	Country *Country `json:"country,omitempty"`
}

// Characteristic is a reusable tag describing banknote features.
type Characteristic struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
