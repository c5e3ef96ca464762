// Package openapi embeds the service's OpenAPI document and validates request
// bodies against its schemas.
package openapi

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

const submissionSchema = "SubmissionRecord"

//go:embed openapi.yaml
var document []byte

// Document returns the raw OpenAPI document.
func Document() []byte {
	return bytes.Clone(document)
}

type Validator struct {
	submission *openapi3.Schema
}

func NewValidator(ctx context.Context) (*Validator, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	spec, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}

	ref, ok := spec.Components.Schemas[submissionSchema]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi: schema %s not found", submissionSchema)
	}
	return &Validator{submission: ref.Value}, nil
}

// DecodeSubmission checks body against the SubmissionRecord schema and decodes it.
func (v *Validator) DecodeSubmission(body []byte) (domain.SubmissionRecord, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.SubmissionRecord{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", fmt.Errorf("invalid json: %w", err))
	}
	if err := v.submission.VisitJSON(raw, openapi3.MultiErrors()); err != nil {
		return domain.SubmissionRecord{}, domain.WrapError(domain.ErrInvalidInput, "validate submission", errors.New(describe(err)))
	}

	var record domain.SubmissionRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return domain.SubmissionRecord{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", err)
	}
	return record, nil
}

func describe(err error) string {
	var multi openapi3.MultiError
	if !errors.As(err, &multi) {
		return schemaReason(err)
	}
	reasons := make([]string, 0, len(multi))
	for _, item := range multi {
		reasons = append(reasons, schemaReason(item))
	}
	return strings.Join(reasons, "; ")
}

func schemaReason(err error) string {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return err.Error()
	}
	if path := schemaErr.JSONPointer(); len(path) > 0 {
		return fmt.Sprintf("%s: %s", strings.Join(path, "."), schemaErr.Reason)
	}
	return schemaErr.Reason
}
