package dbstore

import (
	"fmt"
	"time"

	"msgengine/internal/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a GORM DB instance for the configured driver. The embedded
// default is a local sqlite file; mysql stays available for hosts that share
// one database between tools.
func NewDB(cfg *config.Config, log *zap.SugaredLogger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	}
	if cfg.Logging.Development {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var db *gorm.DB
	var err error

	switch cfg.Database.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Database.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("cannot open sqlite store at %s: %w", cfg.Database.Path, err)
		}
	case "mysql":
		db, err = gorm.Open(mysql.Open(cfg.Database.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	// Additive migrations only: AutoMigrate adds missing columns and never
	// drops unknown ones, so an older engine can read a newer schema.
	if err := db.AutoMigrate(&Message{}, &Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate message store: %w", err)
	}

	log.Infof("✅ Connected to %s message store", cfg.Database.Driver)
	return db, nil
}
