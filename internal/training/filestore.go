package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the corpus in one JSON document. Every update reads the
// whole file and rewrites it through a temp file and a rename.
type FileStore struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, now: time.Now, logger: logger}
}

func (s *FileStore) Load(ctx context.Context) (Corpus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _, err := s.read()
	return c, err
}

func (s *FileStore) Update(ctx context.Context, fn func(*Corpus) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, exists, err := s.read()
	if err != nil {
		return err
	}
	after := before.clone()
	if err := fn(&after); err != nil {
		return err
	}
	if !exists && after.CreatedAt == "" {
		after.CreatedAt = s.now().Format(TimestampLayout)
	}
	if err := checkAppendOnly(before, after); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(after)
}

func (s *FileStore) Close() error { return nil }

// read reports whether the file exists alongside its corpus.
func (s *FileStore) read() (Corpus, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyCorpus(), false, nil
	}
	if err != nil {
		return Corpus{}, false, fmt.Errorf("read training data: %w", err)
	}
	var c Corpus
	if err := json.Unmarshal(b, &c); err != nil {
		return Corpus{}, true, fmt.Errorf("decode training data %s: %w", s.path, err)
	}
	if c.Examples == nil {
		c.Examples = []Example{}
	}
	if c.Patterns == nil {
		c.Patterns = []Pattern{}
	}
	if c.Regions == nil {
		c.Regions = []Region{}
	}
	return c, true, nil
}

func (s *FileStore) write(c Corpus) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode training data: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create training dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".training-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace training data: %w", err)
	}
	s.logger.Info("training.saved", "path", s.path,
		"examples", len(c.Examples), "patterns", len(c.Patterns), "regions", len(c.Regions))
	return nil
}
