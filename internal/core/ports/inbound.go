package ports

import (
	"context"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

// StatementGenerator is the inbound contract for turning a submission into a document.
type StatementGenerator interface {
	Generate(ctx context.Context, record domain.SubmissionRecord) (*domain.RenderedDocument, error)
}
