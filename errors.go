package autocrud

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ErrExcluded is returned when registering a type that matches an
// excluded model pattern.
var ErrExcluded = errors.New("model excluded from registration")

func newHTTPError(code int, textCode, message string) *goerrors.Error {
	if message == "" {
		message = http.StatusText(code)
	}
	if textCode == "" {
		textCode = goerrors.HTTPStatusToTextCode(code)
	}
	return goerrors.New(message, goerrors.HTTPStatusToCategory(code)).
		WithCode(code).
		WithTextCode(textCode)
}

// NewNotFoundError reports a missing row of resource.
func NewNotFoundError(resource string, id any) error {
	return newHTTPError(http.StatusNotFound, "", fmt.Sprintf("%s %v not found", resource, id)).
		WithMetadata(map[string]any{
			"resource": resource,
			"id":       id,
		})
}

// NewBadRequestError reports input the core cannot recover from.
func NewBadRequestError(message string, metadata map[string]any) error {
	err := newHTTPError(http.StatusBadRequest, "", message)
	if metadata != nil {
		err = err.WithMetadata(metadata)
	}
	return err
}

func newRegistrationConflict(message string, metadata map[string]any) error {
	return goerrors.New(message, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode("RESOURCE_CONFLICT").
		WithMetadata(metadata)
}
