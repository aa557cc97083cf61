package domain

import "fmt"

type ErrorCode int64

const (
	ErrorCodeNotFound             ErrorCode = 1
	ErrorCodeValidationFailed     ErrorCode = 4
	ErrorCodeTransitionNotAllowed ErrorCode = 12
	ErrorCodeUnauthenticated      ErrorCode = 13
	ErrorCodeRemote               ErrorCode = 14
)

type Error struct {
	Code    ErrorCode
	Message string
	// Status is the HTTP status the remote service answered with, 0 for transport failures.
	Status int
}

func (e Error) Error() string {
	return e.Message
}

func EntityNotFoundError(entityName, entityID string) error {
	return Error{
		Code:    ErrorCodeNotFound,
		Message: fmt.Sprintf("Entity %q with ID %s not found", entityName, entityID),
	}
}

func ValidationFailedError(message string) error {
	return Error{
		Code:    ErrorCodeValidationFailed,
		Message: message,
	}
}

func TransitionNotAllowedError(current OrderStatus) error {
	return Error{
		Code:    ErrorCodeTransitionNotAllowed,
		Message: fmt.Sprintf("Cannot move forward from %q", current.Label()),
	}
}

func UnauthenticatedError(message string) error {
	return Error{
		Code:    ErrorCodeUnauthenticated,
		Message: message,
	}
}

func RemoteError(status int, message string) error {
	return Error{
		Code:    ErrorCodeRemote,
		Message: message,
		Status:  status,
	}
}
