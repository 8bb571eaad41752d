package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/refund-audit/internal/app"
	"github.com/joseph-ayodele/refund-audit/internal/async"
	"github.com/joseph-ayodele/refund-audit/internal/batch"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/ingest"
	repo "github.com/joseph-ayodele/refund-audit/internal/repository"
)

const serviceName = "refund-audit"

func main() {
	if err := common.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger("json", slog.LevelInfo)
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Ingest.InboxDir == "" {
		logger.Error("missing INBOX_DIR environment variable")
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build extraction stack", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Without DB_URL each file is exported on its own and nothing is stored.
	var batches *batch.Service
	if cfg.Database.DSN != "" {
		pool, err := repo.Open(ctx, repo.Config(cfg.Database), logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer repo.Close(pool, logger)
		if err := repo.Migrate(ctx, pool); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		batches = batch.NewService(repo.NewItemRepository(pool, logger), a.Exporter,
			repo.NewExportRepository(pool, logger), logger)
	} else {
		logger.Warn("DB_URL not set, batches will not be persisted")
	}

	handle := func(ctx context.Context, job async.Job) error {
		out, err := a.Processor.ProcessFile(ctx, job.Path)
		if common.IsPrecondition(err) {
			// the file went away or was still empty when the event fired
			logger.Warn("intake.skipped", "job_id", job.ID, "path", job.Path, "error", err)
			return nil
		}
		if err != nil {
			return err
		}
		if len(out.Records) == 0 {
			logger.Warn("intake.empty", "job_id", job.ID, "path", job.Path, "message", out.Message)
			return nil
		}
		var path string
		if batches != nil {
			if _, err := batches.Replace(ctx, job.SessionID, string(out.Source), out.Records); err != nil {
				return err
			}
			path, err = batches.Export(ctx, job.SessionID)
		} else {
			path, err = a.Exporter.WriteRefundAuditLog(ctx, out.Records)
		}
		if err != nil {
			return err
		}
		logger.Info("intake.done", "job_id", job.ID, "session_id", job.SessionID, "source", out.Source,
			"items", len(out.Records), "level", out.Level, "export", path)
		return nil
	}
	queue := async.NewProcessorQueue(handle, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(3*time.Minute),
	)

	paths, werrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Ingest.InboxDir},
		InitialScan: true,
		Debounce:    cfg.Ingest.Debounce,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "dir", cfg.Ingest.InboxDir, "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	logger.Info("refund-auditd listening", "addr", addr, "inbox", cfg.Ingest.InboxDir)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	for paths != nil || werrs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			// one session per inbox file
			job := async.NewJob(p, filepath.Base(p))
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("intake.enqueue.failed", "path", p, "error", err)
			}
		case err, ok := <-werrs:
			if !ok {
				werrs = nil
				continue
			}
			logger.Error("watcher error", "error", err)
		}
	}

	logger.Info("shutting down")
	healthServer.Shutdown()
	drain, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drain)
	grpcServer.GracefulStop()
}
