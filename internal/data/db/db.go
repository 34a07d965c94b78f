package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

const DefaultURL = "sqlite://./learning_generator.db"

type Service struct {
	db      *gorm.DB
	dialect string
	log     *logger.Logger
}

// Open connects to DATABASE_URL. postgres:// and postgresql:// URLs use the
// postgres driver; sqlite://path (or a bare file path) uses sqlite.
func Open(url string, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	dialector, dialect, err := dialectorFor(url)
	if err != nil {
		return nil, err
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	if dialect == "sqlite" {
		// One writer at a time; the content loop persists after every chapter.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	serviceLog.Info("database connected", "dialect", dialect)
	return &Service{db: db, dialect: dialect, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB    { return s.db }
func (s *Service) Dialect() string { return s.dialect }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(url string) (gorm.Dialector, string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultURL
	}
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), "postgres", nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return nil, "", fmt.Errorf("empty sqlite path in %q", url)
		}
		return sqlite.Open(path), "sqlite", nil
	case strings.Contains(url, "://"):
		return nil, "", fmt.Errorf("unsupported database url scheme: %q", url)
	default:
		return sqlite.Open(url), "sqlite", nil
	}
}
