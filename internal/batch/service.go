// Package batch is the reviewer-facing side of a session's records: a
// reviewed batch replaces the extracted one wholesale, and either can be
// exported.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/record"
	"github.com/joseph-ayodele/refund-audit/internal/repository"
)

// Store is satisfied by repository.ItemRepository.
type Store interface {
	ReplaceSession(ctx context.Context, sessionID, source string, recs []record.ItemRecord) (int64, error)
	ListSession(ctx context.Context, sessionID string) ([]record.ItemRecord, error)
}

// ExportLog is satisfied by repository.ExportRepository.
type ExportLog interface {
	Create(ctx context.Context, sessionID, path string, rows int, size int64) (*repository.ExportFile, error)
}

// Exporter is satisfied by *export.Service.
type Exporter interface {
	WriteRefundAuditLog(ctx context.Context, recs []record.ItemRecord) (string, error)
}

type Service struct {
	store    Store
	exports  ExportLog
	exporter Exporter
	logger   *slog.Logger
}

// NewService wires the batch store. exports may be nil, in which case
// written workbooks are not recorded.
func NewService(store Store, exporter Exporter, exports ExportLog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, exports: exports, exporter: exporter, logger: logger}
}

// Replace normalizes recs and makes them the session's whole batch.
// Records without an item number are dropped.
func (s *Service) Replace(ctx context.Context, sessionID, source string, recs []record.ItemRecord) ([]record.ItemRecord, error) {
	v := common.NewValidator().Field("session_id", sessionID, common.Required)
	if v.HasErrors() {
		return nil, v.Error()
	}
	batch := record.NormalizeAll(recs, 0)
	n, err := s.store.ReplaceSession(ctx, sessionID, source, batch)
	if err != nil {
		return nil, fmt.Errorf("replace batch: %w", err)
	}
	s.logger.Info("batch.replaced", "session_id", sessionID, "source", source,
		"submitted", len(recs), "stored", n)
	return batch, nil
}

func (s *Service) List(ctx context.Context, sessionID string) ([]record.ItemRecord, error) {
	return s.store.ListSession(ctx, sessionID)
}

// Export writes the session's batch as a workbook and returns its path.
func (s *Service) Export(ctx context.Context, sessionID string) (string, error) {
	recs, err := s.store.ListSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("list batch: %w", err)
	}
	path, err := s.exporter.WriteRefundAuditLog(ctx, recs)
	if err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	if s.exports != nil {
		var size int64
		if st, err := os.Stat(path); err == nil {
			size = st.Size()
		}
		if _, err := s.exports.Create(ctx, sessionID, path, len(recs), size); err != nil {
			s.logger.Warn("batch.export.unrecorded", "session_id", sessionID, "path", path, "error", err)
		}
	}
	s.logger.Info("batch.exported", "session_id", sessionID, "path", path, "rows", len(recs))
	return path, nil
}
