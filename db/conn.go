// Package db opens the database and keeps its schema up to date
package db

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"bitwise74/seed-swap/config"
	"bitwise74/seed-swap/internal/model"
	"bitwise74/seed-swap/pkg/util"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the configured database and migrates it
func New(c config.DBConfig) (*gorm.DB, error) {
	// If running in a docker container don't allow the sqlite file to be created.
	// The host should instead mount it using volumes
	if c.Driver == "sqlite" && util.IsRunningInDocker() {
		if _, err := os.Stat(c.DSN); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to %s", c.DSN)
		}
	}

	db, err := Open(c.Driver, c.DSN)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	zap.L().Info("Database ready", zap.String("driver", c.Driver))
	return db, nil
}

func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", driver, err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(model.User{}, model.Seed{}, model.Session{})
	if err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return backfillSearchKeys(db)
}

// backfillSearchKeys fills the folded search columns of rows written before
// they existed
func backfillSearchKeys(db *gorm.DB) error {
	var stale []model.Seed

	err := db.Where("plant_type_key = '' OR variety_name_key = ''").Find(&stale).Error
	if err != nil {
		return fmt.Errorf("failed to fetch seeds without search keys, %w", err)
	}

	for _, s := range stale {
		s.SetSearchKeys()

		err := db.Model(&model.Seed{}).
			Where("id = ?", s.ID).
			UpdateColumns(map[string]any{
				"plant_type_key":   s.PlantTypeKey,
				"variety_name_key": s.VarietyNameKey,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to backfill search keys, %w", err)
		}
	}

	if len(stale) > 0 {
		zap.L().Info("Backfilled seed search keys", zap.Int("count", len(stale)))
	}

	return nil
}
