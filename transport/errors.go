package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-autocrud"
)

// ErrorResponse represents the structure of error responses
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Category  string         `json:"category"`
	TextCode  string         `json:"text_code,omitempty"`
	Message   string         `json:"message"`
	Code      int            `json:"code"`
	RequestID string         `json:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ErrorHandlerConfig allows customization of error handling behavior
type ErrorHandlerConfig struct {
	ErrorMappers []goerrors.ErrorMapper
	Logger       autocrud.Logger
	// FullError keeps internal messages on 5xx responses.
	FullError    bool
	GetRequestID func(c Context) string
}

// DefaultErrorHandlerConfig provides sensible defaults
func DefaultErrorHandlerConfig() ErrorHandlerConfig {
	return ErrorHandlerConfig{
		ErrorMappers: DefaultErrorMappers(),
		Logger:       autocrud.DefaultLogger(),
		GetRequestID: func(c Context) string {
			if id := RequestIDFromContext(c.Context()); id != "" {
				return id
			}
			return c.Header(HeaderRequestID)
		},
	}
}

// DefaultErrorMappers maps the errors the library and adapters return.
func DefaultErrorMappers() []goerrors.ErrorMapper {
	return []goerrors.ErrorMapper{
		func(err error) *goerrors.Error {
			var fieldErr *autocrud.FieldError
			if errors.As(err, &fieldErr) {
				return newHTTPError(http.StatusBadRequest, "", fieldErr.Error()).
					WithMetadata(map[string]any{"field": fieldErr.Key})
			}
			return nil
		},
		func(err error) *goerrors.Error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return newHTTPError(fiberErr.Code, "", fiberErr.Message)
			}
			return nil
		},
		func(err error) *goerrors.Error {
			if errors.Is(err, context.DeadlineExceeded) {
				return newHTTPError(http.StatusGatewayTimeout, "", "")
			}
			return nil
		},
	}
}

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

// WithErrorHandler renders errors returned by the wrapped handlers as
// JSON error responses.
func WithErrorHandler(cfg ErrorHandlerConfig) MiddlewareFunc {
	cfg = cfg.withDefaults()
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			return writeError(c, err, cfg)
		}
	}
}

func (cfg ErrorHandlerConfig) withDefaults() ErrorHandlerConfig {
	def := DefaultErrorHandlerConfig()
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.GetRequestID == nil {
		cfg.GetRequestID = def.GetRequestID
	}
	if len(cfg.ErrorMappers) == 0 {
		cfg.ErrorMappers = def.ErrorMappers
	}
	return cfg
}

// StatusCode returns the HTTP status err maps to.
func StatusCode(err error, mappers []goerrors.ErrorMapper) int {
	if err == nil {
		return http.StatusOK
	}
	if mapped := goerrors.MapToError(err, mappers); mapped != nil && mapped.Code != 0 {
		return mapped.Code
	}
	return http.StatusInternalServerError
}

func writeError(c Context, err error, cfg ErrorHandlerConfig) error {
	mapped := goerrors.MapToError(err, cfg.ErrorMappers)
	if mapped.Code == 0 {
		mapped.Code = http.StatusInternalServerError
	}
	if requestID := cfg.GetRequestID(c); requestID != "" {
		mapped.RequestID = requestID
	}

	body := ErrorBody{
		Category:  fmt.Sprint(mapped.Category),
		TextCode:  mapped.TextCode,
		Message:   mapped.Message,
		Code:      mapped.Code,
		RequestID: mapped.RequestID,
		Metadata:  mapped.Metadata,
	}
	if mapped.Code >= http.StatusInternalServerError && !cfg.FullError {
		body.Message = http.StatusText(mapped.Code)
		body.Metadata = nil
	}

	cfg.Logger.Error("%s %s: %v (code=%d request_id=%s)", c.Method(), c.Path(), err, mapped.Code, mapped.RequestID)

	return c.JSON(mapped.Code, ErrorResponse{Error: body})
}
