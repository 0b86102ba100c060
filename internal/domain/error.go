package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAlreadyPaid         = errors.New("invoice already paid")
	ErrPaymentsDisabled    = errors.New("online payments disabled for tenant")
	ErrAmountTooSmall      = errors.New("amount below provider minimum")
	ErrNoProviderCustomer  = errors.New("no provider customer for tenant")
	ErrProviderUnavailable = errors.New("payment provider call failed")
	ErrSignatureInvalid    = errors.New("webhook signature verification failed")
	ErrUnauthorized        = errors.New("missing or invalid credentials")
	ErrLockUnavailable     = errors.New("could not acquire lock")

	// Storage-layer errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
