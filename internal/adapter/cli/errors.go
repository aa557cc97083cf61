package cli

import (
	"errors"
	"fmt"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/domain"
)

func NotFoundError(message string) error {
	return fmt.Errorf("ERROR: ORDER_NOT_FOUND: %s", message)
}

func ValidationFailedError(message string) error {
	return fmt.Errorf("ERROR: VALIDATION_FAILED: %s", message)
}

func TransitionNotAllowedError(message string) error {
	return fmt.Errorf("ERROR: TRANSITION_NOT_ALLOWED: %s", message)
}

func UnauthenticatedError(message string) error {
	return fmt.Errorf("ERROR: UNAUTHENTICATED: %s", message)
}

func AuthPendingError() error {
	return errors.New("ERROR: AUTH_PENDING: the session could not be verified yet, try again")
}

func RemoteError(message string) error {
	return fmt.Errorf("ERROR: REMOTE_ERROR: %s", message)
}

func InternalError(err error) error {
	return fmt.Errorf("ERROR: unexpected error: %w", err)
}

// mapError turns err into one stable line; fallback is shown when the service sent no message.
func mapError(err error, fallback string) error {
	var domainErr domain.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrorCodeNotFound:
			return NotFoundError(domainErr.Message)
		case domain.ErrorCodeValidationFailed:
			return ValidationFailedError(domainErr.Message)
		case domain.ErrorCodeTransitionNotAllowed:
			return TransitionNotAllowedError(domainErr.Message)
		case domain.ErrorCodeUnauthenticated:
			return UnauthenticatedError(domainErr.Message)
		case domain.ErrorCodeRemote:
			return RemoteError(app.MessageOf(err, fallback))
		default:
			return InternalError(err)
		}
	}
	return InternalError(err)
}
