package commonerrors

import "errors"

var ErrMissingRequiredEnv = errors.New("missing required environment variable")

var (
	ErrDuplicateAccount = NewDomainError(
		"DUPLICATE_ACCOUNT",
		CategoryConflict,
		false,
		"account already exists",
	)

	ErrAccountNotFound = NewDomainError(
		"ACCOUNT_NOT_FOUND",
		CategoryNotFound,
		false,
		"account not found",
	)

	ErrNotificationDelivery = NewDomainError(
		"NOTIFICATION_DELIVERY_FAILED",
		CategoryExternal,
		false,
		"failed to deliver notification",
	)

	ErrStoreUnavailable = NewDomainError(
		"STORE_UNAVAILABLE",
		CategoryUnavailable,
		true,
		"store temporarily unavailable",
	)

	ErrCircuitOpen = NewDomainError(
		"CIRCUIT_OPEN",
		CategoryUnavailable,
		true,
		"circuit breaker is open",
	)

	ErrInvalidCommand = NewDomainError(
		"INVALID_COMMAND",
		CategoryValidation,
		false,
		"invalid lifecycle command",
	)

	ErrTokenMismatch = NewDomainError(
		"TOKEN_MISMATCH",
		CategoryValidation,
		false,
		"verification token belongs to another account",
	)

	ErrCompensationFailed = NewDomainError(
		"COMPENSATION_FAILED",
		CategoryInternal,
		true,
		"failed to roll back account creation",
	)

	ErrInternalError = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		false,
		"internal error",
	)
)
