package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrScope             = errors.New("share scope mismatch")
	ErrCycle             = errors.New("category parent cycle")
	ErrExpired           = errors.New("shared link expired or inactive")
	ErrWrongPassword     = errors.New("wrong shared link password")
	ErrSeed              = errors.New("predefined category seeding failed")
	// ErrStoreUnavailable 表示存储暂时不可用，调用方可退避重试。
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrForbidden        = errors.New("record not owned by actor")
	ErrLimit            = errors.New("limit exceeded")
)

// FieldError 描述单个字段的校验失败。
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError 汇总一条记录的全部校验失败，而不是只报告第一个。
type ValidationError struct {
	Kind   Kind
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Has 判断指定字段是否校验失败。
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func invalid(kind Kind, fields ...FieldError) error {
	return &ValidationError{Kind: kind, Fields: fields}
}

func notFound(kind Kind, id uuid.UUID) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}
