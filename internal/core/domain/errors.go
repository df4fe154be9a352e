package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotReady      = errors.New("index not ready")
	ErrEmptyIndex    = errors.New("query on empty index")
	ErrEmbedding     = errors.New("embedding failure")
	ErrGeneration    = errors.New("generation failure")
	ErrEvaluation    = errors.New("evaluation failure")
	ErrTemporary     = errors.New("temporary failure")
)

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
