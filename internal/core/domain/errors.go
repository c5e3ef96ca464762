package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrBinding             = errors.New("binding error")
	ErrRender              = errors.New("render error")
	ErrTemplateUnavailable = errors.New("template unavailable")
)

var errorKinds = []error{ErrInvalidInput, ErrBinding, ErrRender, ErrTemplateUnavailable}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the first known error kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindLabel is a stable short name for err's kind, used in logs and metrics.
func KindLabel(err error) string {
	switch KindOf(err) {
	case nil:
		if err == nil {
			return "none"
		}
		return "unknown"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrBinding:
		return "binding"
	case ErrRender:
		return "render"
	case ErrTemplateUnavailable:
		return "template_unavailable"
	default:
		return "unknown"
	}
}
