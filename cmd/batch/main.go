package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kirillkom/witness-statement/internal/bootstrap"
	"github.com/kirillkom/witness-statement/internal/config"
	"github.com/kirillkom/witness-statement/internal/core/ports"
	"github.com/kirillkom/witness-statement/internal/core/usecase"
	"github.com/kirillkom/witness-statement/internal/infrastructure/extractor/jsonfile"
	"github.com/kirillkom/witness-statement/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/witness-statement/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/witness-statement/internal/observability/logging"
	"github.com/kirillkom/witness-statement/internal/observability/metrics"
)

const stdinInput = "-"

func main() {
	os.Exit(run())
}

func run() int {
	input := flag.String("input", "", "submissions file (.xlsx or .json), or - for stdin")
	format := flag.String("format", "", "input format (xlsx or json); defaults to the file extension, json for stdin")
	sheet := flag.String("sheet", "", "worksheet to read; defaults to the active sheet")
	outDir := flag.String("out", "./out", "directory for generated documents")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("batch", cfg.LogLevel))

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: batch -input <file.xlsx|file.json|-> [-format xlsx|json] [-sheet name] [-out dir]")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batchMetrics := metrics.NewBatchMetrics("batch")
	app, err := bootstrap.New(ctx, cfg, batchMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		return 1
	}

	reader, err := submissionReader(*input, *format, *sheet, os.Stdin)
	if err != nil {
		slog.Error("batch_input_unsupported", "input", *input, "error", err)
		return 2
	}
	sink, err := localfs.NewDocumentDir(*outDir)
	if err != nil {
		slog.Error("batch_output_failed", "out", *outDir, "error", err)
		return 1
	}

	start := time.Now()
	report, err := usecase.NewBatchGenerateUseCase(reader, app.GenerateUC, sink, batchMetrics).Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if pushErr := batchMetrics.Push(pushCtx, cfg.BatchPushgatewayURL, "witness_statement_batch"); pushErr != nil {
		slog.Warn("batch_metrics_push_failed", "error", pushErr)
	}

	if err != nil {
		slog.Error("batch_failed", "input", *input, "error", err)
		return 1
	}
	slog.Info("batch_finished",
		"input", *input,
		"rows", report.Rows,
		"generated", report.Generated,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if report.Failed > 0 {
		return 1
	}
	return 0
}

func submissionReader(input, format, sheet string, stdin io.Reader) (ports.SubmissionReader, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
		if input == stdinInput {
			format = "json"
		}
	}

	switch strings.ToLower(format) {
	case "xlsx", "xlsm":
		if input == stdinInput {
			return spreadsheet.NewStreamReader(stdin, sheet), nil
		}
		return spreadsheet.NewReader(input, sheet), nil
	case "json":
		if input == stdinInput {
			return jsonfile.NewStreamReader(stdin), nil
		}
		return jsonfile.NewReader(input), nil
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}
