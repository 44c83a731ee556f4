package errors

import (
	"errors"
	"net/http"
	"strings"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is an error that carries the HTTP status it should be reported with.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors with the same status and message so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Status == e.Status && t.Message == e.Message
}

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

var (
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrForbidden           = New("forbidden", http.StatusForbidden)
	ErrInvalidPassword     = New("invalid email or password", http.StatusUnauthorized)
	ErrEmailExists         = New("email already registered", http.StatusBadRequest)
	ErrInvalidToken        = New("invalid or expired token", http.StatusBadRequest)
	ErrTooManyRequests     = New("too many requests", http.StatusTooManyRequests)
	ErrServiceUnavailable  = New("service not configured", http.StatusServiceUnavailable)

	// Messaging taxonomy.
	ErrValidation       = New("validation error", http.StatusBadRequest)
	ErrNotAuthenticated = New("not authenticated", http.StatusUnauthorized)
	ErrStoreUnavailable = New("store unavailable", http.StatusServiceUnavailable)

	InActiveUserError = errors.New("user is inactive")
)

// Validation returns an ErrValidation-compatible error with a specific message.
func Validation(message string) error {
	return &validationError{msg: message}
}

type validationError struct {
	msg string
}

func (v *validationError) Error() string { return v.msg }

func (v *validationError) Is(target error) bool { return target == ErrValidation }

// StoreUnavailable marks err as a persistence failure.
func StoreUnavailable(err error) error {
	return &storeError{cause: err}
}

type storeError struct {
	cause error
}

func (s *storeError) Error() string { return "store unavailable: " + s.cause.Error() }

func (s *storeError) Is(target error) bool { return target == ErrStoreUnavailable }

func (s *storeError) Unwrap() error { return s.cause }

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &e):
		return e.Status
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetUniqueContraintError maps a database unique violation to ErrEmailExists.
func GetUniqueContraintError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique") || strings.Contains(msg, "already") {
		return ErrEmailExists
	}
	return ErrInternalServerError
}

// ErrorHandler is the gin-rate-limit callback for exhausted limits.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"message": "too many requests, try again at " + info.ResetTime.Format("15:04:05"),
		"errors":  ErrTooManyRequests.Message,
		"status":  http.StatusText(http.StatusTooManyRequests),
	})
}
