package training

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
)

//go:embed sqlite.sql
var sqliteSchema string

// SQLiteStore keeps the corpus in append-only tables. Update inserts only
// the entries fn appended.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens (creating if needed) the corpus database at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("training.sqlite.open", "path", path)
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply training schema: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO corpus_meta (id, created_at) VALUES (1, ?)`,
		s.now().Format(TimestampLayout))
	if err != nil {
		return fmt.Errorf("init corpus meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Corpus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s.db)
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(*Corpus) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin training tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := load(ctx, tx)
	if err != nil {
		return err
	}
	after := before.clone()
	if err := fn(&after); err != nil {
		return err
	}
	if err := checkAppendOnly(before, after); err != nil {
		return err
	}

	for _, e := range after.Examples[len(before.Examples):] {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO training_examples (item_number, image_path, description, added_at) VALUES (?, ?, ?, ?)`,
			e.ItemNumber, e.ImagePath, e.Description, e.AddedAt); err != nil {
			return fmt.Errorf("insert example: %w", err)
		}
	}
	for _, p := range after.Patterns[len(before.Patterns):] {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trained_patterns (type, value, added_at) VALUES (?, ?, ?)`,
			p.Type, p.Value, p.AddedAt); err != nil {
			return fmt.Errorf("insert pattern: %w", err)
		}
	}
	for _, r := range after.Regions[len(before.Regions):] {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trained_regions (name, loc_top, loc_left, loc_width, loc_height, added_at) VALUES (?, ?, ?, ?, ?, ?)`,
			r.Name, r.Location.Top, r.Location.Left, r.Location.Width, r.Location.Height, r.AddedAt); err != nil {
			return fmt.Errorf("insert region: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit training tx: %w", err)
	}
	s.logger.Info("training.saved", "backend", "sqlite",
		"examples", len(after.Examples), "patterns", len(after.Patterns), "regions", len(after.Regions))
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func load(ctx context.Context, q queryer) (Corpus, error) {
	c := Corpus{Examples: []Example{}, Patterns: []Pattern{}, Regions: []Region{}}
	if err := q.QueryRowContext(ctx, `SELECT created_at FROM corpus_meta WHERE id = 1`).Scan(&c.CreatedAt); err != nil && err != sql.ErrNoRows {
		return Corpus{}, fmt.Errorf("load corpus meta: %w", err)
	}

	rows, err := q.QueryContext(ctx, `SELECT item_number, image_path, description, added_at FROM training_examples ORDER BY id`)
	if err != nil {
		return Corpus{}, fmt.Errorf("load examples: %w", err)
	}
	for rows.Next() {
		var e Example
		if err := rows.Scan(&e.ItemNumber, &e.ImagePath, &e.Description, &e.AddedAt); err != nil {
			rows.Close()
			return Corpus{}, fmt.Errorf("scan example: %w", err)
		}
		c.Examples = append(c.Examples, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Corpus{}, err
	}

	rows, err = q.QueryContext(ctx, `SELECT type, value, added_at FROM trained_patterns ORDER BY id`)
	if err != nil {
		return Corpus{}, fmt.Errorf("load patterns: %w", err)
	}
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.Type, &p.Value, &p.AddedAt); err != nil {
			rows.Close()
			return Corpus{}, fmt.Errorf("scan pattern: %w", err)
		}
		c.Patterns = append(c.Patterns, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Corpus{}, err
	}

	rows, err = q.QueryContext(ctx, `SELECT name, loc_top, loc_left, loc_width, loc_height, added_at FROM trained_regions ORDER BY id`)
	if err != nil {
		return Corpus{}, fmt.Errorf("load regions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Region
		var loc preprocess.Region
		if err := rows.Scan(&r.Name, &loc.Top, &loc.Left, &loc.Width, &loc.Height, &r.AddedAt); err != nil {
			return Corpus{}, fmt.Errorf("scan region: %w", err)
		}
		r.Location = loc
		c.Regions = append(c.Regions, r)
	}
	return c, rows.Err()
}
