package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

var itemColumns = []string{
	"session_id", "position", "item_number", "price", "period", "item_date", "item_time",
	"description", "quantity", "exception", "department", "confidence", "source",
}

// ItemRepository stores one batch of records per review session.
type ItemRepository interface {
	// ReplaceSession deletes the session's batch and inserts recs in one
	// transaction.
	ReplaceSession(ctx context.Context, sessionID, source string, recs []record.ItemRecord) (int64, error)
	ListSession(ctx context.Context, sessionID string) ([]record.ItemRecord, error)
}

type itemRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewItemRepository(pool *pgxpool.Pool, logger *slog.Logger) ItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &itemRepo{pool: pool, logger: logger}
}

func (r *itemRepo) ReplaceSession(ctx context.Context, sessionID, source string, recs []record.ItemRecord) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM report_items WHERE session_id = $1`, sessionID); err != nil {
		r.logger.Error("failed to clear session batch", "session_id", sessionID, "error", err)
		return 0, fmt.Errorf("delete batch: %w", err)
	}

	rows := make([][]any, 0, len(recs))
	for i, rec := range recs {
		rows = append(rows, []any{
			sessionID, i, rec.ItemNumber, rec.Price, rec.Period, rec.Date, rec.Time,
			rec.Description, rec.Quantity, rec.Exception, rec.Department, rec.Confidence, source,
		})
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"report_items"}, itemColumns, pgx.CopyFromRows(rows))
	if err != nil {
		r.logger.Error("failed to insert session batch", "session_id", sessionID, "rows", len(rows), "error", err)
		return 0, fmt.Errorf("insert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	r.logger.Info("repository.batch.replaced", "session_id", sessionID, "rows", n)
	return n, nil
}

func (r *itemRepo) ListSession(ctx context.Context, sessionID string) ([]record.ItemRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT item_number, price, period, item_date, item_time, description,
		       quantity, exception, department, confidence
		FROM report_items WHERE session_id = $1 ORDER BY position`, sessionID)
	if err != nil {
		r.logger.Error("failed to list session batch", "session_id", sessionID, "error", err)
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (record.ItemRecord, error) {
		var rec record.ItemRecord
		err := row.Scan(&rec.ItemNumber, &rec.Price, &rec.Period, &rec.Date, &rec.Time,
			&rec.Description, &rec.Quantity, &rec.Exception, &rec.Department, &rec.Confidence)
		return rec, err
	})
}
