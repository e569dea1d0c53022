package commonerrors

import (
	"errors"
	"fmt"
)

type ErrorCategory string

const (
	CategoryValidation  ErrorCategory = "VALIDATION"
	CategoryConflict    ErrorCategory = "CONFLICT"
	CategoryNotFound    ErrorCategory = "NOT_FOUND"
	CategoryExternal    ErrorCategory = "EXTERNAL"
	CategoryUnavailable ErrorCategory = "UNAVAILABLE"
	CategoryInternal    ErrorCategory = "INTERNAL"
)

// DomainError carries the retry decision with the error: transient errors
// leave a delivery unacknowledged, terminal ones are acknowledged and dropped.
type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	Message() string
	Transient() bool
	Unwrap() error
	WithCause(cause error) DomainError
}

type domainError struct {
	code      string
	category  ErrorCategory
	transient bool
	message   string
	cause     error
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string {
	return e.code
}

func (e *domainError) Category() ErrorCategory {
	return e.category
}

func (e *domainError) Message() string {
	return e.message
}

func (e *domainError) Transient() bool {
	return e.transient
}

func (e *domainError) Unwrap() error {
	return e.cause
}

// Is matches on code so a WithCause copy still satisfies errors.Is against
// the catalog value it was derived from.
func (e *domainError) Is(target error) bool {
	t, ok := target.(*domainError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *domainError) WithCause(cause error) DomainError {
	return &domainError{
		code:      e.code,
		category:  e.category,
		transient: e.transient,
		message:   e.message,
		cause:     cause,
	}
}

func NewDomainError(code string, category ErrorCategory, transient bool, message string) DomainError {
	return &domainError{
		code:      code,
		category:  category,
		transient: transient,
		message:   message,
	}
}

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsTransient treats anything unclassified as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := AsDomainError(err); ok {
		return de.Transient()
	}
	return true
}
