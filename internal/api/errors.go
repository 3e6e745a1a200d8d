package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrFileTooLarge is returned by Upload before anything is sent when the
// content exceeds model.MaxUploadSize.
var ErrFileTooLarge = errors.New("file exceeds upload limit")

// Error is a request the service answered with a failure, either through
// a non-2xx status or through an error envelope.
type Error struct {
	Group  string
	Method string
	Path   string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the status code carried inside the response envelope. The
	// service reports most failures with HTTP 200 and a code here.
	Code int

	// Message is the human-readable explanation from the service.
	Message string

	// Detail is the short error label from the service, if any.
	Detail string
}

func (e *Error) Error() string {
	code := e.Code
	if code == 0 {
		code = e.StatusCode
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s API error (%d) on %s %s", e.Group, code, e.Method, e.Path)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Message != "" && e.Message != e.Detail {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// IsNotFound reports whether err (or any error in its chain) is a service
// answer meaning the requested record does not exist.
func IsNotFound(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.StatusCode == http.StatusNotFound
}

// ValidationError is returned when a request body fails local validation.
// No request is sent in that case.
type ValidationError struct {
	Fields []string
	err    error
}

func newValidationError(err error) *ValidationError {
	ve := &ValidationError{err: err}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			ve.Fields = append(ve.Fields, fe.Namespace()+" ("+fe.Tag()+")")
		}
	}
	return ve
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request: " + e.err.Error()
	}
	return "invalid request: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// requireID rejects an empty identifier, which would otherwise address
// the collection rather than one of its members.
func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Fields: []string{kind + ".id (required)"}, err: errors.New("missing " + kind + " id")}
	}
	return nil
}
