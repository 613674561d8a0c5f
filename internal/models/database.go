package models

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured database. The returned handle is passed
// explicitly to every service.
func Open(dbCfg *config.DatabaseConfig, logCfg *config.LogConfig) (*gorm.DB, error) {
	dsn := dbCfg.ConnectionString()

	var dialector gorm.Dialector
	switch dbCfg.Driver {
	case "sqlite", "":
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(logCfg.SlowQueryThreshold, logCfg.SQL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbCfg.Driver == "sqlite" || dbCfg.Driver == "" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		if dbCfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
		}
		if dbCfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
		}
	}

	return db, nil
}

// AllModels lists every table owned by the service.
func AllModels() []interface{} {
	return []interface{}{
		&Repository{},
		&Branch{},
		&LinesOfCode{},
		&LinesOfCodeLanguage{},
		&CodeCoverage{},
		&CodeCoverageTarget{},
		&CodeCoverageFile{},
		&UnitTest{},
		&UnitTestClass{},
		&UnitTestCase{},
		&ImageCapture{},
		&ImageCaptureFile{},
		&ImageCaptureDiff{},
		&NotificationChannel{},
		&SchedulerLock{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
