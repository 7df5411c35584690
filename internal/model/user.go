// Package model contains all database models
package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:16" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Location     string    `json:"location"`
	Bio          string    `json:"bio"`
	ProfileImage string    `json:"profile_image"` // Image reference returned by the storage backend
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Seeds []Seed `gorm:"foreignKey:OwnerID" json:"-"`
}
