package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPasswordMismatch is returned when password and repeated_password differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrEmailTaken is returned when registering an email that already belongs to a user.
	ErrEmailTaken = errors.New("email already exists")
	// ErrBlankName is returned when the registration fullname has no characters.
	ErrBlankName = errors.New("fullname must not be blank")
	// ErrUnknownMember is returned when a board member id does not resolve to a user.
	ErrUnknownMember = errors.New("invalid request data, some users may be invalid")
	// ErrUnknownUser is returned when an assignee or reviewer id does not resolve to a user.
	ErrUnknownUser = errors.New("user does not exist")
	// ErrInvalidStatus is returned for a task status outside the known set.
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrInvalidPriority is returned for a task priority outside the known set.
	ErrInvalidPriority = errors.New("invalid task priority")
	// ErrEmptyContent is returned when a comment has no content.
	ErrEmptyContent = errors.New("comment content must not be empty")

	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid, expired or revoked.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrUserNotFound    = errors.New("user not found")
	ErrBoardNotFound   = errors.New("board not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// ValidationError reports a malformed or conflicting input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ForbiddenError is returned when an authenticated user may not perform an action.
type ForbiddenError struct {
	Action   string
	Entity   string
	EntityID uint
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s denied on %s %d", e.Action, e.Entity, e.EntityID)
}

// IsForbidden reports whether err carries an authorization denial.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var sentinelCodes = []struct {
	err    error
	status int
	code   string
}{
	{ErrPasswordMismatch, http.StatusBadRequest, "PASSWORD_MISMATCH"},
	{ErrEmailTaken, http.StatusBadRequest, "EMAIL_TAKEN"},
	{ErrBlankName, http.StatusBadRequest, "BLANK_NAME"},
	{ErrUnknownMember, http.StatusBadRequest, "UNKNOWN_MEMBER"},
	{ErrUnknownUser, http.StatusBadRequest, "UNKNOWN_USER"},
	{ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{ErrInvalidPriority, http.StatusBadRequest, "INVALID_PRIORITY"},
	{ErrEmptyContent, http.StatusBadRequest, "EMPTY_CONTENT"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrBoardNotFound, http.StatusNotFound, "BOARD_NOT_FOUND"},
	{ErrTaskNotFound, http.StatusNotFound, "TASK_NOT_FOUND"},
	{ErrCommentNotFound, http.StatusNotFound, "COMMENT_NOT_FOUND"},
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewHTTPError(http.StatusBadRequest, ve.Error(), "VALIDATION_ERROR")
	}
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return NewHTTPError(http.StatusForbidden, "you are not allowed to perform this action", "FORBIDDEN")
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return NewHTTPError(s.status, s.err.Error(), s.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
