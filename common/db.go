package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDb opens the relational store named by cfg.DatabaseURL. URLs with a
// postgres scheme use the Postgres driver; anything else is a SQLite path.
func ConnectDb(cfg Config, log logrus.FieldLogger) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		return nil, fmt.Errorf("database url not set")
	}

	gormCfg := GormConfig(log)

	if isPostgres(dsn) {
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("opened postgres database")
		return db, nil
	}

	db, err := OpenSQLite(dsn, gormCfg)
	if err != nil {
		return nil, err
	}
	log.WithField("path", dsn).Info("opened sqlite db")
	return db, nil
}

// OpenSQLite opens a SQLite database restricted to a single connection, so
// ":memory:" databases stay shared across the pool and writers serialize.
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = GormConfig(nil)
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// GormConfig enables driver error translation so unique violations surface
// as gorm.ErrDuplicatedKey on every dialect.
func GormConfig(log logrus.FieldLogger) *gorm.Config {
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormlogger.Discard,
	}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	return cfg
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
