package members

import "net/http"

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeMemberNotFound    = "MEMBER_NOT_FOUND"
	CodeEmailAlreadyInUse = "EMAIL_ALREADY_IN_USE"
)

func validationError(field, reason string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "invalid " + field,
		Details: map[string]any{field: reason},
	}
}

func notFoundError() *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    CodeMemberNotFound,
		Message: "member not found",
	}
}

func emailInUseError() *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeEmailAlreadyInUse,
		Message: "email address is already in use",
	}
}
