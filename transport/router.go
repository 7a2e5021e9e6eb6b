// Package transport exposes registered resources over HTTP. Handlers
// are written once against Context and served by either the fiber or
// the httprouter adapter.
package transport

import (
	"context"
	"net"
	"net/http"
)

const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
	HeaderOrigin      = "Origin"
	HeaderVary        = "Vary"
	HeaderAllowOrigin = "Access-Control-Allow-Origin"
)

// HTTPMethod represents HTTP request methods
type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
	PATCH  HTTPMethod = "PATCH"
	HEAD   HTTPMethod = "HEAD"
)

type HandlerFunc func(Context) error

type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context represents a generic HTTP context
type Context interface {
	Method() string
	Path() string
	// OriginalURL is the request path with its raw query.
	OriginalURL() string
	IP() string
	// Host is the requested host without port.
	Host() string

	Param(name string) string
	Query(name string, defaultValue ...string) string
	Queries() map[string]string

	Header(key string) string
	SetHeader(key, value string) Context

	Status(code int) Context
	Send(body []byte) error
	JSON(code int, v any) error

	Context() context.Context
	SetContext(ctx context.Context)
}

// Router represents a generic router interface
type Router[T any] interface {
	Handle(method HTTPMethod, path string, handler HandlerFunc, middlewares ...MiddlewareFunc)
	// HandleHTTP mounts a net/http handler, e.g. the metrics endpoint.
	HandleHTTP(method HTTPMethod, path string, handler http.Handler)
	Get(path string, handler HandlerFunc, middlewares ...MiddlewareFunc)
	Group(prefix string) Router[T]
	Use(middlewares ...MiddlewareFunc) Router[T]
	Routes() []RouteDefinition
}

// Server represents a generic server interface
type Server[T any] interface {
	Router() Router[T]
	WrappedRouter() T
	Serve(address string) error
	Shutdown(ctx context.Context) error
}

// RouteDefinition records a registered route.
type RouteDefinition struct {
	Method HTTPMethod `json:"method"`
	Path   string     `json:"path"`
}

// chain applies middlewares so the first one runs outermost.
func chain(handler HandlerFunc, middlewares ...MiddlewareFunc) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "" || path == "/":
		return prefix
	}
	if prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return prefix + path
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
