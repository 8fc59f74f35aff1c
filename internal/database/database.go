package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/clubhouse/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite database at dbPath and migrates the user and
// audit tables. Driver errors are translated so unique violations surface as
// gorm.ErrDuplicatedKey.
func NewDatabase(dbPath string, log logrus.FieldLogger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithField("path", dbPath).Info("Database initialized")

	return &Database{DB: db}, nil
}

// SQLDB exposes the underlying connection pool, shared with the session
// table.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newGormLogger(log logrus.FieldLogger) logger.Interface {
	return logger.New(gormWriter{log}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type gormWriter struct {
	log logrus.FieldLogger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.WithField("component", "gorm").Warnf(format, args...)
}
