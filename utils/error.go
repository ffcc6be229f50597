package utils

import (
	"errors"
	"net/http"

	"doemais/database/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorKind classifies application errors for the HTTP edge.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindBusinessRule
	KindNotFound
	KindUnauthorized
	KindForbidden
)

// AppError is an error raised deliberately by the service layer.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func ValidationError(msg string) *AppError   { return &AppError{Kind: KindValidation, Message: msg} }
func ConflictError(msg string) *AppError     { return &AppError{Kind: KindConflict, Message: msg} }
func BusinessRuleError(msg string) *AppError { return &AppError{Kind: KindBusinessRule, Message: msg} }
func NotFoundError(msg string) *AppError     { return &AppError{Kind: KindNotFound, Message: msg} }
func UnauthorizedError(msg string) *AppError { return &AppError{Kind: KindUnauthorized, Message: msg} }
func ForbiddenError(msg string) *AppError    { return &AppError{Kind: KindForbidden, Message: msg} }

// Wrap attaches a cause to a new AppError of the given kind.
func Wrap(kind ErrorKind, msg string, err error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

// FromStore converts a repository error into an AppError. Missing records
// become not-found and unique-constraint violations become conflicts.
func FromStore(msg string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return Wrap(KindNotFound, msg+" not found", err)
	case errors.Is(err, repository.ErrDuplicate):
		return Wrap(KindConflict, msg+" already exists", err)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(KindInternal, "failed to access "+msg, err)
}

// StatusFor maps an error to the HTTP status that represents it.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindBusinessRule:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// RespondError writes err using the status of its kind. Internal errors hide
// their cause from the client.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		GetLogger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Message: "Internal Server Error"})
		return
	}
	var appErr *AppError
	errors.As(err, &appErr)
	details := ""
	if appErr.Err != nil {
		details = appErr.Err.Error()
	}
	JSONError(c, status, appErr.Message, details)
}
