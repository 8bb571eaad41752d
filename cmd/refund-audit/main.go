package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/refund-audit/internal/app"
	"github.com/joseph-ayodele/refund-audit/internal/auditlog"
	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/ingest"
	"github.com/joseph-ayodele/refund-audit/internal/pdfkv"
	"github.com/joseph-ayodele/refund-audit/internal/record"
	"github.com/joseph-ayodele/refund-audit/internal/training"
)

const usage = `usage: refund-audit <command> [flags]

commands:
  extract        extract item records from files (-export writes a workbook)
  scan-dir       extract every supported file under a directory and export
  auditlog       parse a fixed-width audit log
  pdfkv          print the key-value pairs of a PDF
  export         write a workbook from a JSON array of records
  train-add      add a training example
  train-analyze  locate a known item number in an image and learn from it
  train-batch    analyze a JSON array of {item_number, image_path, description}
  train-summary  print the training corpus counts
`

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		printError(usage)
		os.Exit(2)
	}
	if err := common.LoadDotEnv(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Getenv("LOG_FORMAT"), slog.LevelInfo)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "auditlog":
		err = runAuditLog(args)
	case "pdfkv":
		err = runPDF(args)
	case "extract", "scan-dir", "export", "train-add", "train-analyze", "train-batch", "train-summary":
		err = withApp(ctx, logger, func(a *app.App) error {
			switch cmd {
			case "extract":
				return runExtract(ctx, a, args)
			case "scan-dir":
				return runScanDir(ctx, a, args)
			case "export":
				return runExport(ctx, a, args)
			case "train-add":
				return runTrainAdd(ctx, a, args)
			case "train-analyze":
				return runTrainAnalyze(ctx, a, args)
			case "train-batch":
				return runTrainBatch(ctx, a, args)
			default:
				return runTrainSummary(ctx, a)
			}
		})
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		printError("Error: unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func withApp(ctx context.Context, logger *slog.Logger, fn func(*app.App) error) error {
	a, err := app.New(ctx, common.LoadConfig(), logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runExtract(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	doExport := fs.Bool("export", false, "write the extracted records to a workbook")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: at least one file is required", common.ErrNoFile)
	}

	var all []record.ItemRecord
	for _, path := range fs.Args() {
		out, err := a.Processor.ProcessFile(ctx, path)
		if perr := printJSON(map[string]any{
			"file":     path,
			"success":  out.Success,
			"source":   out.Source,
			"level":    out.Level,
			"message":  out.Message,
			"records":  out.Records,
			"attempts": len(out.Attempts),
		}); perr != nil {
			return perr
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			continue
		}
		all = append(all, out.Records...)
	}
	if !*doExport {
		return nil
	}
	path, err := a.Exporter.WriteRefundAuditLog(ctx, all)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runScanDir(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("scan-dir", flag.ExitOnError)
	dir := fs.String("dir", "", "directory to process (required)")
	hidden := fs.Bool("hidden", false, "include hidden files")
	_ = fs.Parse(args)
	if *dir == "" {
		return fmt.Errorf("%w: -dir is required", common.ErrInvalidInput)
	}

	var all []record.ItemRecord
	results, stats, err := ingest.ScanDirectory(ctx, *dir, !*hidden, ingest.NewDeduper(),
		func(ctx context.Context, fi ingest.FileInfo) error {
			out, err := a.Processor.ProcessFile(ctx, fi.Path)
			if err != nil {
				return err
			}
			all = append(all, out.Records...)
			return nil
		})
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != "" {
			a.Logger.Warn("scan.file.failed", "path", r.File.Path, "error", r.Err)
		}
	}
	a.Logger.Info("scan.complete", "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "failed", stats.Failed, "deduplicated", stats.Deduplicated)

	path, err := a.Exporter.WriteRefundAuditLog(ctx, all)
	if err != nil {
		return err
	}
	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files processed: %d\n", stats.Succeeded)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Records: %d\n", len(all))
	fmt.Printf("- Output: %s\n", path)
	return nil
}

func runAuditLog(args []string) error {
	fs := flag.NewFlagSet("auditlog", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: auditlog <file>", common.ErrInvalidInput)
	}
	layout, err := app.AuditLayout(common.LoadConfig().AuditLog)
	if err != nil {
		return err
	}
	p, err := auditlog.NewParser(layout, nil)
	if err != nil {
		return err
	}
	entries, err := p.ParseFile(fs.Arg(0))
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func runPDF(args []string) error {
	fs := flag.NewFlagSet("pdfkv", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: pdfkv <file>", common.ErrInvalidInput)
	}
	kv, err := pdfkv.ParseFile(fs.Arg(0))
	if err != nil {
		return err
	}
	return printJSON(kv)
}

func runExport(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	in := fs.String("in", "", "JSON file with an array of records (required)")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("%w: -in is required", common.ErrInvalidInput)
	}
	var recs []record.ItemRecord
	if err := readJSON(*in, &recs); err != nil {
		return err
	}
	path, err := a.Exporter.WriteRefundAuditLog(ctx, record.NormalizeAll(recs, 0))
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runTrainAdd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("train-add", flag.ExitOnError)
	item := fs.String("item", "", "known item number (required)")
	image := fs.String("image", "", "image path (required)")
	desc := fs.String("desc", "", "description")
	_ = fs.Parse(args)
	ok, err := a.Trainer.AddExample(ctx, *item, *image, *desc)
	if err != nil {
		return err
	}
	return printJSON(map[string]bool{"added": ok})
}

func runTrainAnalyze(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("train-analyze", flag.ExitOnError)
	item := fs.String("item", "", "known item number (required)")
	image := fs.String("image", "", "image path (required)")
	_ = fs.Parse(args)
	res, err := a.Trainer.Analyze(ctx, *image, *item)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runTrainBatch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("train-batch", flag.ExitOnError)
	in := fs.String("in", "", "JSON file with an array of examples (required)")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("%w: -in is required", common.ErrInvalidInput)
	}
	var inputs []training.ExampleInput
	if err := readJSON(*in, &inputs); err != nil {
		return err
	}
	res, err := a.Trainer.TrainBatch(ctx, inputs)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runTrainSummary(ctx context.Context, a *app.App) error {
	s, err := a.Trainer.Summary(ctx)
	if err != nil {
		return err
	}
	return printJSON(s)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
