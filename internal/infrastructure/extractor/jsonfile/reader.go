package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

// Reader reads a JSON file holding one submission object or an array of them.
type Reader struct {
	open func() (io.ReadCloser, error)
}

func NewReader(path string) *Reader {
	return &Reader{open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

func NewStreamReader(src io.Reader) *Reader {
	return &Reader{open: func() (io.ReadCloser, error) { return io.NopCloser(src), nil }}
}

func (r *Reader) ReadSubmissions(ctx context.Context) ([]domain.SubmissionRow, error) {
	reader, err := r.open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open submissions", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read submissions", err)
	}
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read submissions", fmt.Errorf("input is not utf-8 text"))
	}

	elements, err := splitElements(bytes.TrimSpace(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse submissions", err)
	}

	out := make([]domain.SubmissionRow, 0, len(elements))
	for i, element := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := domain.SubmissionRow{Number: i + 1}
		row.Record, row.Err = decodeElement(element)
		out = append(out, row)
	}
	return out, nil
}

func splitElements(raw []byte) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("input is empty")
	}
	if raw[0] != '[' {
		return []json.RawMessage{raw}, nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

func decodeElement(element json.RawMessage) (domain.SubmissionRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(element, &fields); err != nil {
		return domain.SubmissionRecord{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", err)
	}
	missing := domain.MissingFields(func(field string) bool {
		_, ok := fields[field]
		return ok
	})
	if len(missing) > 0 {
		return domain.SubmissionRecord{}, domain.WrapError(domain.ErrInvalidInput, "decode submission",
			fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}

	var record domain.SubmissionRecord
	if err := json.Unmarshal(element, &record); err != nil {
		return domain.SubmissionRecord{}, domain.WrapError(domain.ErrInvalidInput, "decode submission", err)
	}
	return record, nil
}
