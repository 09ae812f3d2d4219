package utils

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindNotFound           ErrorKind = "NotFound"
	KindPreconditionFailed ErrorKind = "PreconditionFailed"
	KindConflict           ErrorKind = "Conflict"
	KindInsufficientStock  ErrorKind = "InsufficientStock"
	KindValidation         ErrorKind = "ValidationError"
	KindUnauthorized       ErrorKind = "Unauthorized"
	KindInternal           ErrorKind = "Internal"
)

// AppError is the error type returned by every model operation.
// errors.Is(err, ErrConflict) matches any AppError of the same kind.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound           = &AppError{Kind: KindNotFound}
	ErrPreconditionFailed = &AppError{Kind: KindPreconditionFailed}
	ErrConflict           = &AppError{Kind: KindConflict}
	ErrInsufficientStock  = &AppError{Kind: KindInsufficientStock}
	ErrValidation         = &AppError{Kind: KindValidation}
	ErrUnauthorized       = &AppError{Kind: KindUnauthorized}
)

var ErrorRecordNotFound = &AppError{Kind: KindNotFound, Message: "record not found"}

func newAppError(kind ErrorKind, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(format string, args ...any) error {
	return newAppError(KindNotFound, format, args...)
}

func NewPreconditionFailed(format string, args ...any) error {
	return newAppError(KindPreconditionFailed, format, args...)
}

func NewConflict(format string, args ...any) error {
	return newAppError(KindConflict, format, args...)
}

func NewInsufficientStock(format string, args ...any) error {
	return newAppError(KindInsufficientStock, format, args...)
}

func NewValidationError(format string, args ...any) error {
	return newAppError(KindValidation, format, args...)
}

func NewUnauthorized(format string, args ...any) error {
	return newAppError(KindUnauthorized, format, args...)
}

// KindOf reports the taxonomy kind of err; anything outside the taxonomy is Internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsDuplicateKeyError detects unique index violations from either the
// translated gorm error or a raw MySQL 1062.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// TranslateNotFound maps gorm.ErrRecordNotFound to a NotFound naming the resource.
func TranslateNotFound(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFound("%s %v not found", resource, id)
	}
	return err
}
