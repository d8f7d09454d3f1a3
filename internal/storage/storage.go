package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// Open accepts sqlite://<path>, postgres://..., postgresql://... or mysql://<dsn>.
func Open(databaseURL string, logger *zap.Logger) (*Store, error) {
	dial, isSqlite, err := dialector(databaseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gormLog := gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormLog,
	})
	if err != nil {
		return nil, err
	}

	if isSqlite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// An in-memory database only exists on its own connection.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

func dialector(databaseURL string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return nil, false, errors.New("sqlite path is empty")
		}
		if !strings.Contains(path, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				return nil, false, err
			}
		}
		return sqlite.Open(path), true, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), false, nil
	case strings.HasPrefix(databaseURL, "mysql://"):
		dsn := ensureParam(strings.TrimPrefix(databaseURL, "mysql://"), "parseTime", "true")
		return mysql.Open(dsn), false, nil
	default:
		return nil, false, fmt.Errorf("unsupported database url %q", redact(databaseURL))
	}
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}

func redact(databaseURL string) string {
	if idx := strings.Index(databaseURL, "://"); idx >= 0 {
		return databaseURL[:idx+3] + "..."
	}
	return "..."
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&GuildPolicy{},
		&ProfanityFilterChannel{},
		&ModerationEntry{},
		&CustomCommand{},
		&AuditLog{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// DeleteGuild removes every row owned by the guild.
func (s *Store) DeleteGuild(ctx context.Context, guildID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&ProfanityFilterChannel{}, &ModerationEntry{}, &CustomCommand{}, &AuditLog{}, &GuildPolicy{}} {
			if err := tx.Where("guild_id = ?", guildID).Delete(model).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
}
