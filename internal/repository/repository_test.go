package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// These tests need a disposable Postgres database in TEST_DB_URL.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	return &Config{DSN: dsn, MaxConns: 2, DialTimeout: 5 * time.Second}
}

func TestReplaceSession(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	pool, err := Open(ctx, *cfg, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer Close(pool, nil)
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := HealthCheck(ctx, pool, time.Second, nil); err != nil {
		t.Fatalf("health: %v", err)
	}

	repo := NewItemRepository(pool, nil)
	session := "test-" + uuid.NewString()
	first := []record.ItemRecord{
		{ItemNumber: "1111111", Price: "1.00", Period: "P01", Quantity: 1},
		{ItemNumber: "2222222", Price: "2.00", Period: "P02", Quantity: -2, Confidence: record.Conf(0.5)},
	}
	if n, err := repo.ReplaceSession(ctx, session, "AI_VISION", first); err != nil || n != 2 {
		t.Fatalf("expected 2 rows got %d, %v", n, err)
	}
	second := []record.ItemRecord{{ItemNumber: "3333333", Price: "3.00", Period: "P03", Quantity: 1}}
	if n, err := repo.ReplaceSession(ctx, session, "EDIT", second); err != nil || n != 1 {
		t.Fatalf("expected 1 row got %d, %v", n, err)
	}

	got, err := repo.ListSession(ctx, session)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ItemNumber != "3333333" || got[0].Confidence != nil {
		t.Fatalf("expected the replaced batch got %+v", got)
	}

	exports := NewExportRepository(pool, nil)
	ef, err := exports.Create(ctx, session, "/tmp/x.xlsx", 1, 1024)
	if err != nil {
		t.Fatalf("create export: %v", err)
	}
	list, err := exports.ListBySession(ctx, session)
	if err != nil || len(list) != 1 || list[0].ID != ef.ID {
		t.Fatalf("unexpected exports %v, %v", list, err)
	}
}
