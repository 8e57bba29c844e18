package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"megbot/internal/models"
)

// Keys of the blobs the desktop client persists.
const (
	PreferencesKey = "megbot_preferences"
	ChatsKey       = "megbot_chats"
	// ClientTokenKey holds the token that scopes this install on the server.
	ClientTokenKey = "megbot_client_token"
)

// RecordRepository stores keyed JSON blobs. Save overwrites the whole value.
type RecordRepository interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// Load returns the stored value. A missing row is reported with ok=false and
// no error.
func (r *recordRepository) Load(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("record key is required")
	}
	var rec models.StoredRecord
	if err := r.db.WithContext(ctx).Where("record_key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Value, true, nil
}

func (r *recordRepository) Save(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("record key is required")
	}
	rec := models.StoredRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (r *recordRepository) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("record key is required")
	}
	return r.db.WithContext(ctx).Where("record_key = ?", key).Delete(&models.StoredRecord{}).Error
}
