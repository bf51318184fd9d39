package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrNotFound           = "NOT_FOUND"
	ErrConflict           = "CONFLICT"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
)

// Upload-specific error codes.
const (
	ErrUploadTooLarge     = "UPLOAD_TOO_LARGE"
	ErrUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
	ErrUploadFailed       = "UPLOAD_FAILED"
	ErrUnknownUploadScope = "UNKNOWN_UPLOAD_FOLDER"
)

// ErrorEnvelope is the standard error shape exchanged with the frontend and
// decoded from the training-center API. It implements the error interface.
// Fields carries the API's 422 shape: field name to a list of messages.
type ErrorEnvelope struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldMessages returns the messages attached to one field, or nil.
func (e *ErrorEnvelope) FieldMessages(field string) []string {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[field]
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-scoped messages.
func NewValidationError(fields map[string][]string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Fields:  fields,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The training-center API is temporarily unavailable",
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: "The training-center API did not respond in time",
	}
}

// NewUploadTooLargeError returns an UPLOAD_TOO_LARGE error naming the ceiling.
func NewUploadTooLargeError(limitBytes int64) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUploadTooLarge,
		Message: fmt.Sprintf("File exceeds the maximum size of %dMB", limitBytes>>20),
	}
}

// NewUnsupportedMediaError returns an UNSUPPORTED_MEDIA_TYPE error.
func NewUnsupportedMediaError(mime string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnsupportedMedia,
		Message: fmt.Sprintf("Only image files can be uploaded, got %q", mime),
	}
}

// NewUploadFailedError returns an UPLOAD_FAILED error with the server message
// when present.
func NewUploadFailedError(msg string) *ErrorEnvelope {
	if msg == "" {
		msg = "Upload failed, please try again"
	}
	return &ErrorEnvelope{Code: ErrUploadFailed, Message: msg}
}

// IsCode reports whether err is an *ErrorEnvelope with the given code.
func IsCode(err error, code string) bool {
	ee, ok := err.(*ErrorEnvelope)
	return ok && ee.Code == code
}
