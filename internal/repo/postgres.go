package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sir_venger/flatstore/internal/models"
)

const filesMetaTable = "files_meta"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGStore сохраняет метаданные в Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres создаёт пул подключений и проверяет доступность базы.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("meta dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PGStore{pool: pool}, nil
}

// Get возвращает метаданные файла по имени.
func (s *PGStore) Get(ctx context.Context, name string) (models.FileMeta, error) {
	sqlStr, args, err := psql.
		Select("name", "size", "content_type", "sha256", "updated_at").
		From(filesMetaTable).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.FileMeta{}, fmt.Errorf("build select: %w", err)
	}

	var fm models.FileMeta
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&fm.Name, &fm.Size, &fm.ContentType, &fm.Sha256, &fm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FileMeta{}, models.ErrNotFound
		}
		return models.FileMeta{}, fmt.Errorf("scan file row: %w", err)
	}

	return fm, nil
}

// Save записывает (или обновляет) метаданные файла.
func (s *PGStore) Save(ctx context.Context, fm models.FileMeta) error {
	sqlStr, args, err := psql.
		Insert(filesMetaTable).
		Columns("name", "size", "content_type", "sha256", "updated_at").
		Values(fm.Name, fm.Size, fm.ContentType, fm.Sha256, fm.UpdatedAt).
		Suffix(`
					ON CONFLICT (name) DO UPDATE
					SET size         = EXCLUDED.size,
						content_type = EXCLUDED.content_type,
						sha256       = EXCLUDED.sha256,
						updated_at   = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert sql: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}

	return nil
}

// Close освобождает подключения пула.
func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
