// Package sqlstore реализует Storage поверх gorm для PostgreSQL и SQLite.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием gorm.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// Все таблицы приложения в порядке миграции.
var models = []any{
	&domain.User{}, &domain.Session{},
	&domain.Post{}, &domain.PostHashtag{}, &domain.Comment{}, &domain.Like{}, &domain.Repost{},
	&domain.Collection{}, &domain.Bookmark{}, &domain.Follow{}, &domain.Notification{},
	&domain.Conversation{}, &domain.Message{},
	&domain.Invite{},
	&domain.Product{}, &domain.Order{}, &domain.WebhookEvent{}, &domain.WishlistItem{},
	&domain.Task{}, &domain.TaskCompletion{},
}

// OpenPostgres подключается к PostgreSQL по DSN и мигрирует схему.
func OpenPostgres(dsn string, logSQL bool) (*Store, error) {
	return open(postgres.Open(dsn), logSQL)
}

// OpenSQLite открывает файл SQLite и мигрирует схему.
func OpenSQLite(path string, logSQL bool) (*Store, error) {
	s, err := open(sqlite.Open(path+"?_busy_timeout=5000"), logSQL)
	if err != nil {
		return nil, err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite допускает одного писателя
	sqlDB.SetMaxOpenConns(1)
	return s, nil
}

func open(dialector gorm.Dialector, logSQL bool) (*Store, error) {
	level := logger.Warn
	if logSQL {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// isUniqueViolation распознает нарушение уникальности у обоих драйверов.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// translate переводит ошибки gorm/драйвера в ошибки домена.
func translate(err error, what, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(what)
	case isUniqueViolation(err):
		return domain.Conflict(conflictMsg)
	}
	return err
}

// exists проверяет наличие строки model с условием query.
func exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// bump изменяет денормализованный счетчик поста, не опуская его ниже нуля.
func bump(tx *gorm.DB, postID string, c storage.Counter, delta int) error {
	col := string(c)
	q := tx.Model(&domain.Post{}).Where("id = ?", postID)
	if delta < 0 {
		q = q.Where(col+" >= ?", -delta)
	}
	return q.UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func prefixPattern(q string) string {
	return likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

func paged(q *gorm.DB, page storage.Page) *gorm.DB {
	page = page.Normalize()
	return q.Limit(page.Limit).Offset(page.Offset)
}
