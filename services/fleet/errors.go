package fleet

import "fmt"

// ErrorCode identifies which field of an addVm request failed validation.
type ErrorCode string

const (
	CodeInvalidIP     ErrorCode = "InvalidIp"
	CodeInvalidStatus ErrorCode = "InvalidStatus"
	CodeInvalidType   ErrorCode = "InvalidType"
)

// ValidationError reports a rejected session field.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
