package util

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrTotalGenerationFailure = errors.New("no module could be generated")
	ErrCacheMiss              = errors.New("cache miss")
	ErrEmptyCompletion        = errors.New("AI returned no choices")
	ErrTruncatedJSON          = errors.New("structured response is truncated")
)

// ValidationError 字段级校验错误，Fields 为 字段名->诊断信息
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
