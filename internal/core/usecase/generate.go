package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/witness-statement/internal/core/domain"
	"github.com/kirillkom/witness-statement/internal/core/ports"
)

type GenerateStatementUseCase struct {
	templates  ports.TemplateSource
	renderer   ports.DocumentRenderer
	normalizer *FieldNormalizer
	observer   ports.GenerationObserver
	now        func() time.Time
}

func NewGenerateStatementUseCase(
	templates ports.TemplateSource,
	renderer ports.DocumentRenderer,
	splitter ports.LineSplitter,
	observer ports.GenerationObserver,
) *GenerateStatementUseCase {
	return &GenerateStatementUseCase{
		templates:  templates,
		renderer:   renderer,
		normalizer: NewFieldNormalizer(splitter),
		observer:   observer,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for download filenames.
func (uc *GenerateStatementUseCase) WithClock(now func() time.Time) *GenerateStatementUseCase {
	if now != nil {
		uc.now = now
	}
	return uc
}

// Generate runs normalize, bind and render for one submission. Nothing is
// cached between calls: the template is loaded and the binding built per call.
func (uc *GenerateStatementUseCase) Generate(ctx context.Context, record domain.SubmissionRecord) (*domain.RenderedDocument, error) {
	start := time.Now()
	narrativeItems := 0

	doc, err := uc.generate(ctx, record, &narrativeItems)

	documentBytes := 0
	if doc != nil {
		documentBytes = len(doc.Data)
	}
	if uc.observer != nil {
		uc.observer.ObserveGeneration(narrativeItems, documentBytes, time.Since(start), err)
	}

	if err != nil {
		slog.WarnContext(ctx, "statement_failed",
			"error_kind", domain.KindLabel(err),
			"narrative_items", narrativeItems,
			"error", err,
		)
		return nil, err
	}
	slog.InfoContext(ctx, "statement_generated",
		"filename", doc.Filename,
		"narrative_items", narrativeItems,
		"bytes", documentBytes,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return doc, nil
}

func (uc *GenerateStatementUseCase) generate(ctx context.Context, record domain.SubmissionRecord, narrativeItems *int) (*domain.RenderedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact, err := uc.templates.Load(ctx)
	if err != nil {
		if domain.KindOf(err) == nil {
			err = domain.WrapError(domain.ErrTemplateUnavailable, "load template", err)
		}
		return nil, err
	}
	manifest := artifact.Manifest.Normalize()

	normalized := uc.normalizer.Normalize(record, manifest.Image)
	*narrativeItems = len(normalized.Narrative)
	if len(normalized.DroppedSignatures) > 0 {
		slog.WarnContext(ctx, "signature_dropped", "fields", normalized.DroppedSignatures)
	}
	binding := BindStatement(record, normalized)

	decl, err := uc.renderer.Inspect(artifact.Content)
	if err != nil {
		return nil, ensureKind(domain.ErrRender, "inspect template", err)
	}
	if err := VerifyBinding(decl, binding); err != nil {
		return nil, err
	}

	data, err := uc.renderer.Render(ctx, artifact.Content, binding)
	if err != nil {
		return nil, ensureKind(domain.ErrRender, "render template", err)
	}

	return &domain.RenderedDocument{
		Filename:       DownloadFilename(manifest.FilenamePrefix, uc.now()),
		ContentType:    domain.DocxContentType,
		Data:           data,
		NarrativeItems: len(normalized.Narrative),
	}, nil
}

// DownloadFilename builds "<prefix>_<unix-ms>.docx".
func DownloadFilename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%d.docx", prefix, at.UnixMilli())
}

func ensureKind(kind error, operation string, err error) error {
	if domain.KindOf(err) != nil {
		return err
	}
	return domain.WrapError(kind, operation, err)
}
