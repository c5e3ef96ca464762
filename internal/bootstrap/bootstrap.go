package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/witness-statement/internal/adapters/http/openapi"
	"github.com/kirillkom/witness-statement/internal/config"
	"github.com/kirillkom/witness-statement/internal/core/ports"
	"github.com/kirillkom/witness-statement/internal/core/usecase"
	"github.com/kirillkom/witness-statement/internal/infrastructure/chunking"
	"github.com/kirillkom/witness-statement/internal/infrastructure/docx"
	"github.com/kirillkom/witness-statement/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Validator  *openapi.Validator
	GenerateUC *usecase.GenerateStatementUseCase
}

// New wires the generation pipeline. A missing template is reported but not
// fatal: it is read on every request and may appear later.
func New(ctx context.Context, cfg config.Config, observer ports.GenerationObserver) (*App, error) {
	templates := localfs.New(cfg.TemplateDir, cfg.TemplateManifest)
	if _, err := templates.Manifest(); err != nil {
		return nil, fmt.Errorf("load template manifest: %w", err)
	}
	if err := templates.Check(); err != nil {
		slog.WarnContext(ctx, "template_unavailable", "dir", cfg.TemplateDir, "error", err)
	}

	validator, err := openapi.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("init request validator: %w", err)
	}

	generateUC := usecase.NewGenerateStatementUseCase(
		templates,
		docx.NewRenderer(),
		chunking.NewLineSplitter(),
		observer,
	)

	return &App{
		Config:     cfg,
		Validator:  validator,
		GenerateUC: generateUC,
	}, nil
}
