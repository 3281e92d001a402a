package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")
	ErrMissingUserID = errors.New("no user id in request")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Partial update of a form; some fields were rejected
	ErrPartialUpdate = errors.New("partial update")

	// A backing system the request needs is not configured or unreachable
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Domain messages returned to clients verbatim.
const (
	MsgNoUserID             = "No user ID in header."
	MsgSoldierNotFound      = "Soldier does not exist."
	MsgUnitNotFound         = "Unit does not exist."
	MsgFlagNotFound         = "Soldier Flag does not exist"
	MsgDesignationNotFound  = "Designation does not exist"
	MsgEventNotFound        = "DA Form 7817 does not exist"
	MsgEventTypeNotFound    = "Event Type does not exist"
	MsgMOSNotFound          = "MOS does not exist"
	MsgTrainingTypeNotFound = "Training Type does not exist"
	MsgEvalTypeNotFound     = "Evaluation Type does not exist"
	MsgAwardTypeNotFound    = "Award Type does not exist"
	MsgTCSLocationNotFound  = "TCS Location does not exist"
	MsgTaskNotFound         = "Task does not exist"
	MsgFaultNotFound        = "Fault does not exist."
	MsgCounselingNotFound   = "DA Form 4856 does not exist"
	MsgDocumentNotFound     = "Supporting Document does not exist"
	MsgDocumentTypeNotFound = "Supporting Document Type does not exist"
	MsgNotificationNotFound = "Notification does not exist"
	MsgNoUnitRole           = "Requesting user does not have a user role for this unit."
	MsgNoSoldierRole        = "Requesting user does not have a user role for this soldier's unit."
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewUnauthorizedError creates a new custom error for a requester lacking a role
func NewUnauthorizedError(message string) error {
	return &CustomError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying the offending field
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewPartialUpdateError creates an error for an update that applied only some fields
func NewPartialUpdateError(message string, failed []string) error {
	return &CustomError{
		Err:     ErrPartialUpdate,
		Message: message,
		Details: map[string]interface{}{"failed_fields": failed},
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// MessageOf returns the client-facing message of a CustomError anywhere in the chain
func MessageOf(err error) (string, bool) {
	var custom *CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		return custom.Message, true
	}
	return "", false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

