package model

import "time"

// Session is a server side session row used by the database session store
type Session struct {
	ID        string    `gorm:"primaryKey;size:32"`
	UserID    string    `gorm:"not null;index;size:16"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
