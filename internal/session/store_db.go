package session

import (
	"context"
	"errors"
	"time"

	"bitwise74/seed-swap/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBStore keeps sessions in the sessions table
type DBStore struct {
	DB *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{DB: db}
}

func (d *DBStore) Get(ctx context.Context, id string) (*Session, error) {
	var row model.Session

	err := d.DB.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &Session{ID: row.ID, UserID: row.UserID, ExpiresAt: row.ExpiresAt}, nil
}

func (d *DBStore) Save(ctx context.Context, s *Session) error {
	return d.DB.WithContext(ctx).Save(&model.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	}).Error
}

func (d *DBStore) Delete(ctx context.Context, id string) error {
	return d.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Session{}).
		Error
}

// DeleteExpired removes every expired session and returns how many rows
// were deleted
func (d *DBStore) DeleteExpired(ctx context.Context) (int64, error) {
	r := d.DB.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&model.Session{})

	return r.RowsAffected, r.Error
}

// Cleanup periodically removes expired sessions until ctx is done. Expired
// rows are already ignored by Get, this only keeps the table small.
func (d *DBStore) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	zap.L().Debug("Session cleanup attached", zap.Duration("tick_every", every))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.DeleteExpired(ctx)
			if err != nil {
				zap.L().Error("Failed to cleanup expired sessions", zap.Error(err))
				continue
			}

			if n > 0 {
				zap.L().Debug("Cleaned up expired sessions", zap.Int64("count", n))
			}
		}
	}
}
