package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation bad numeric input, bounds violation or malformed command
	ErrValidation = errors.New("validation error")
	// ErrSequence action attempted out of order
	ErrSequence = errors.New("sequence error")
	// ErrNotFound referenced entity no longer exists
	ErrNotFound = errors.New("not found")
	// ErrUnavailable external collaborator failed
	ErrUnavailable = errors.New("external service unavailable")
	// ErrStorage persistence failure
	ErrStorage = errors.New("storage error")

	ErrEmptyCart         = errors.New("cart is empty")
	ErrBelowMinimum      = errors.New("order total is below the minimum")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Sequencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSequence, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StorageErr tags err as a persistence failure of op. Errors that already
// carry a domain kind are returned unchanged.
func StorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Reason strips the kind prefix so the message can be shown to a user.
func Reason(err error) string {
	var msg = err.Error()
	for _, kind := range []error{ErrValidation, ErrSequence, ErrNotFound} {
		prefix := kind.Error() + ": "
		if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return msg
}
