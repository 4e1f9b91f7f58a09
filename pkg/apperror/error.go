package apperror

import "net/http"

// AppError is an error with the status and client-safe message to answer with.
// Err is the cause; it is logged, never sent.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return New(http.StatusBadRequest, message, err)
}

func PayloadTooLarge(err error) *AppError {
	return New(http.StatusRequestEntityTooLarge, "Payload too large", err)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Server error", err)
}
