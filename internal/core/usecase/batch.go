package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/witness-statement/internal/core/domain"
	"github.com/kirillkom/witness-statement/internal/core/ports"
)

// BatchReport summarizes one batch run.
type BatchReport struct {
	Rows      int
	Generated int
	Failed    int
}

type BatchGenerateUseCase struct {
	reader    ports.SubmissionReader
	generator ports.StatementGenerator
	sink      ports.DocumentSink
	observer  ports.RowObserver
}

func NewBatchGenerateUseCase(
	reader ports.SubmissionReader,
	generator ports.StatementGenerator,
	sink ports.DocumentSink,
	observer ports.RowObserver,
) *BatchGenerateUseCase {
	return &BatchGenerateUseCase{
		reader:    reader,
		generator: generator,
		sink:      sink,
		observer:  observer,
	}
}

// Run renders every row of the source through the same pipeline as the API.
// A failing row is logged and counted; it does not stop the run. The returned
// error covers the source itself and cancellation only.
func (uc *BatchGenerateUseCase) Run(ctx context.Context) (BatchReport, error) {
	rows, err := uc.reader.ReadSubmissions(ctx)
	if err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{Rows: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		if uc.observer != nil {
			uc.observer.StartRow()
		}
		name, err := uc.processRow(ctx, row)
		if uc.observer != nil {
			uc.observer.FinishRow(time.Since(start), err)
		}

		if err != nil {
			report.Failed++
			slog.WarnContext(ctx, "batch_row_failed",
				"row", row.Number,
				"error_kind", domain.KindLabel(err),
				"error", err,
			)
			continue
		}
		report.Generated++
		slog.InfoContext(ctx, "batch_row_generated", "row", row.Number, "filename", name)
	}
	return report, nil
}

func (uc *BatchGenerateUseCase) processRow(ctx context.Context, row domain.SubmissionRow) (string, error) {
	if row.Err != nil {
		return "", row.Err
	}
	doc, err := uc.generator.Generate(ctx, row.Record)
	if err != nil {
		return "", err
	}
	name := BatchFilename(doc.Filename, row.Number)
	if err := uc.sink.WriteDocument(ctx, name, doc.Data); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// BatchFilename suffixes a download filename with the source row number so
// rows rendered within the same millisecond do not collide.
func BatchFilename(filename string, row int) string {
	base := strings.TrimSuffix(filename, ".docx")
	return fmt.Sprintf("%s_%d.docx", base, row)
}
