package model

import (
	"time"

	"golang.org/x/text/cases"
)

type Seed struct {
	ID                 string    `gorm:"primaryKey;size:16" json:"id"`
	PlantType          string    `gorm:"not null;index" json:"plant_type"`
	VarietyName        string    `gorm:"not null;index" json:"variety_name"`
	VarietyDescription string    `json:"variety_description"`
	Image              string    `json:"image"` // Empty when the listing has no image
	OwnerID            string    `gorm:"not null;index;size:16" json:"owner_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Case folded copies of PlantType and VarietyName that search matches
	// against. SQL LOWER() only folds ASCII on sqlite.
	PlantTypeKey   string `gorm:"not null;default:''" json:"-"`
	VarietyNameKey string `gorm:"not null;default:''" json:"-"`
}

// SearchKey folds s the way search keys and queries are compared
func SearchKey(s string) string {
	// A Caser keeps state, so one per call
	return cases.Fold().String(s)
}

// SetSearchKeys refreshes the folded copies from the displayed values
func (s *Seed) SetSearchKeys() {
	s.PlantTypeKey = SearchKey(s.PlantType)
	s.VarietyNameKey = SearchKey(s.VarietyName)
}

// Listing is a seed joined with the public fields of its owner. It's what
// the public browse and search pages get, the owner's password hash never
// leaves the users table.
type Listing struct {
	Seed          `gorm:"embedded"`
	OwnerUsername string `json:"owner_username"`
	OwnerLocation string `json:"owner_location"`
	OwnerEmail    string `json:"owner_email"`
}
