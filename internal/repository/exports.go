package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExportFile is one written workbook.
type ExportFile struct {
	ID        uuid.UUID
	SessionID string
	Path      string
	Rows      int
	SizeBytes int64
	CreatedAt time.Time
}

type ExportRepository interface {
	Create(ctx context.Context, sessionID, path string, rows int, size int64) (*ExportFile, error)
	ListBySession(ctx context.Context, sessionID string) ([]*ExportFile, error)
}

type exportRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewExportRepository(pool *pgxpool.Pool, logger *slog.Logger) ExportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &exportRepo{pool: pool, logger: logger}
}

func (r *exportRepo) Create(ctx context.Context, sessionID, path string, rows int, size int64) (*ExportFile, error) {
	ef := &ExportFile{ID: uuid.New(), SessionID: sessionID, Path: path, Rows: rows, SizeBytes: size}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO export_files (id, session_id, path, rows, size_bytes)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		ef.ID, sessionID, path, rows, size).Scan(&ef.CreatedAt)
	if err != nil {
		r.logger.Error("failed to record export", "session_id", sessionID, "path", path, "error", err)
		return nil, err
	}
	return ef, nil
}

func (r *exportRepo) ListBySession(ctx context.Context, sessionID string) ([]*ExportFile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, path, rows, size_bytes, created_at
		FROM export_files WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		r.logger.Error("failed to list exports", "session_id", sessionID, "error", err)
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ExportFile, error) {
		ef := &ExportFile{}
		err := row.Scan(&ef.ID, &ef.SessionID, &ef.Path, &ef.Rows, &ef.SizeBytes, &ef.CreatedAt)
		return ef, err
	})
}
