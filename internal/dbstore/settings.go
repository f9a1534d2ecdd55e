package dbstore

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"msgengine/internal/common"
)

// Setting is one persisted key/value pair: the sync cursor, the push
// token, anything that must survive a restart.
type Setting struct {
	Key   string `gorm:"primaryKey;size:128"`
	Value string `gorm:"not null"`
}

func (Setting) TableName() string {
	return "settings"
}

type settingsStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewSettings returns a database-backed implementation of common.Settings
// sharing the message store's connection.
func NewSettings(db *gorm.DB, log *zap.SugaredLogger) common.Settings {
	return &settingsStore{db: db, log: log}
}

func (s *settingsStore) Get(key string) (string, bool) {
	var row Setting
	err := s.db.First(&row, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warnw("settings read failed", "key", key, "error", err)
		}
		return "", false
	}
	return row.Value, true
}

func (s *settingsStore) Set(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
	if err != nil {
		return &common.StorageError{Op: "settings.set", Err: err}
	}
	return nil
}
