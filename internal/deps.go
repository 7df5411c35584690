package internal

import (
	"bitwise74/seed-swap/config"
	"bitwise74/seed-swap/internal/service"
	"bitwise74/seed-swap/internal/session"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/pkg/middleware"

	"gorm.io/gorm"
)

// Deps holds everything handlers need. It's built once in main and passed
// down explicitly.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Auth     *service.AuthService
	Seeds    *service.SeedService
	Images   storage.Store
	Sessions *session.Manager
	Flashes  *middleware.Flashes
}
