package models

import "time"

// MaxCompareEntries bounds the comparison selection.
const MaxCompareEntries = 4

// CompareEntry is one user-selected listing. ID is the canonical URL path
// with the query stripped, stable across page loads.
type CompareEntry struct {
	ID          string    `json:"id" db:"id"`
	URL         string    `json:"url" db:"url"`
	Name        string    `json:"name" db:"name"`
	Rating      float64   `json:"rating" db:"rating"`
	ReviewCount int       `json:"review_count" db:"review_count"`
	Price       float64   `json:"price" db:"price"`
	Currency    string    `json:"currency" db:"currency"`
	Location    string    `json:"location" db:"location"`
	StaySummary string    `json:"stay_summary" db:"stay_summary"`
	AddedAt     time.Time `json:"added_at" db:"added_at"`
	IsActive    bool      `json:"is_active" db:"is_active"`
}

// FeatureCell is one listing's value for a feature row. Boolean rows use
// Present; textual rows (POI distances, top-level fields) use Text.
type FeatureCell struct {
	Text    string `json:"text"`
	Present bool   `json:"present"`
	Boolean bool   `json:"boolean"`
}

// FeatureRow is one labelled row of the comparison matrix.
type FeatureRow struct {
	Label   string        `json:"label"`
	Cells   []FeatureCell `json:"cells"`
	Differs bool          `json:"differs"`
}

// FeatureSection groups rows under their source facility group or POI
// category. The pinned section ("top facilities") always sorts first.
type FeatureSection struct {
	Name   string       `json:"name"`
	Pinned bool         `json:"pinned"`
	Rows   []FeatureRow `json:"rows"`
}

// CompareMatrix is the full comparison table: fixed top-level field rows
// followed by derived feature sections. Rebuilt on every render, never
// persisted.
type CompareMatrix struct {
	Entries  []CompareEntry   `json:"entries"`
	Fields   []FeatureRow     `json:"fields"`
	Sections []FeatureSection `json:"sections"`
}
