package ports

import (
	"context"
	"time"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

// TemplateSource loads the template artifact. Implementations read it fresh on every call.
type TemplateSource interface {
	Load(ctx context.Context) (*domain.TemplateArtifact, error)
}

// DocumentRenderer merges a binding into a template package.
type DocumentRenderer interface {
	Inspect(template []byte) (domain.TemplateDeclaration, error)
	Render(ctx context.Context, template []byte, binding *domain.TemplateBinding) ([]byte, error)
}

// LineSplitter splits free text into trimmed, non-empty lines.
type LineSplitter interface {
	Split(text string) []string
}

// SubmissionReader yields submissions from an offline source (batch mode).
// A malformed row is reported on the row itself; the error return is for the source as a whole.
type SubmissionReader interface {
	ReadSubmissions(ctx context.Context) ([]domain.SubmissionRow, error)
}

// DocumentSink stores a generated document under a file name (batch mode).
type DocumentSink interface {
	WriteDocument(ctx context.Context, name string, data []byte) error
}

// RowObserver is told about every batch row as it is processed.
type RowObserver interface {
	StartRow()
	FinishRow(duration time.Duration, err error)
}

// GenerationObserver receives the outcome of every generation attempt.
type GenerationObserver interface {
	ObserveGeneration(narrativeItems, documentBytes int, duration time.Duration, err error)
}
