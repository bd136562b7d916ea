package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"

	"brandsim/server/internal/config"
	"brandsim/server/internal/models"
)

type MySQLStore struct {
	db *gorm.DB
}

func NewMySQLStore(cfg config.MySQLConfig, logger *zap.Logger) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return FromDB(db)
}

// FromDB wraps an open connection and migrates the schema.
func FromDB(db *gorm.DB) (*MySQLStore, error) {
	if err := db.AutoMigrate(
		&models.Company{},
		&models.Scenario{},
		&models.Game{},
		&models.Post{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// NewGormLogger routes gorm's SQL logging through zap.
func NewGormLogger(logger *zap.Logger) gormlogger.Interface {
	l := zapgorm2.New(logger)
	l.LogLevel = gormlogger.Warn
	l.SlowThreshold = 500 * time.Millisecond
	l.IgnoreRecordNotFoundError = true
	return l
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *MySQLStore) GetDB() *gorm.DB {
	return s.db
}

// Ping checks the database connection.
func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *MySQLStore) Companies() *CompanyStore   { return &CompanyStore{db: s.db} }
func (s *MySQLStore) Scenarios() *ScenarioStore { return &ScenarioStore{db: s.db} }
func (s *MySQLStore) Games() *GameStore         { return &GameStore{db: s.db} }
func (s *MySQLStore) Posts() *PostStore         { return &PostStore{db: s.db} }

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}
