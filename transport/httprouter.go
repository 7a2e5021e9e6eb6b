package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// HTTPRouterAdapter implements Server for julienschmidt/httprouter
type HTTPRouterAdapter struct {
	router *httprouter.Router
	root   *HTTPRouter
	server *http.Server
}

func NewHTTPRouterAdapter(opts ...func(*httprouter.Router) *httprouter.Router) Server[*httprouter.Router] {
	router := httprouter.New()

	if len(opts) == 0 {
		opts = append(opts, DefaultHTTPRouterOptions)
	}

	for _, opt := range opts {
		router = opt(router)
	}

	return &HTTPRouterAdapter{
		router: router,
		root:   &HTTPRouter{router: router, routes: &routeTable{}, errors: DefaultErrorHandlerConfig()},
	}
}

func DefaultHTTPRouterOptions(router *httprouter.Router) *httprouter.Router {
	router.HandleMethodNotAllowed = true
	router.HandleOPTIONS = true
	return router
}

func (a *HTTPRouterAdapter) Router() Router[*httprouter.Router] {
	return a.root
}

func (a *HTTPRouterAdapter) WrappedRouter() *httprouter.Router {
	return a.router
}

func (a *HTTPRouterAdapter) Serve(address string) error {
	a.server = &http.Server{
		Addr:    address,
		Handler: a.router,
	}
	return a.server.ListenAndServe()
}

func (a *HTTPRouterAdapter) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// HTTPRouter implements Router for httprouter
type HTTPRouter struct {
	router     *httprouter.Router
	prefix     string
	middleware []MiddlewareFunc
	routes     *routeTable
	errors     ErrorHandlerConfig
}

func (r *HTTPRouter) Handle(method HTTPMethod, path string, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	fullPath := joinPath(r.prefix, path)
	all := append(append([]MiddlewareFunc{}, r.middleware...), middlewares...)
	h := chain(handler, all...)

	r.router.Handle(string(method), fullPath, func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		ctx := NewHTTPRouterContext(w, req, params)
		if err := h(ctx); err != nil {
			writeError(ctx, err, r.errors)
		}
	})
	r.routes.add(method, fullPath)
}

func (r *HTTPRouter) HandleHTTP(method HTTPMethod, path string, handler http.Handler) {
	fullPath := joinPath(r.prefix, path)
	r.router.Handler(string(method), fullPath, handler)
	r.routes.add(method, fullPath)
}

func (r *HTTPRouter) Get(path string, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	r.Handle(GET, path, handler, middlewares...)
}

func (r *HTTPRouter) Group(prefix string) Router[*httprouter.Router] {
	return &HTTPRouter{
		router:     r.router,
		prefix:     joinPath(r.prefix, prefix),
		middleware: append([]MiddlewareFunc{}, r.middleware...),
		routes:     r.routes,
		errors:     r.errors,
	}
}

// Use applies middlewares to routes registered afterwards.
func (r *HTTPRouter) Use(middlewares ...MiddlewareFunc) Router[*httprouter.Router] {
	r.middleware = append(r.middleware, middlewares...)
	return r
}

func (r *HTTPRouter) Routes() []RouteDefinition {
	return r.routes.list()
}

type httpRouterContext struct {
	w          http.ResponseWriter
	r          *http.Request
	params     httprouter.Params
	statusCode int
}

func NewHTTPRouterContext(w http.ResponseWriter, r *http.Request, ps httprouter.Params) Context {
	return &httpRouterContext{w: w, r: r, params: ps}
}

func (c *httpRouterContext) Method() string      { return c.r.Method }
func (c *httpRouterContext) Path() string        { return c.r.URL.Path }
func (c *httpRouterContext) OriginalURL() string { return c.r.URL.RequestURI() }

func (c *httpRouterContext) IP() string {
	host, _, err := net.SplitHostPort(c.r.RemoteAddr)
	if err != nil {
		return c.r.RemoteAddr
	}
	return host
}

func (c *httpRouterContext) Host() string {
	return stripPort(c.r.Host)
}

func (c *httpRouterContext) Param(name string) string {
	return c.params.ByName(name)
}

func (c *httpRouterContext) Query(name string, defaultValue ...string) string {
	if v := c.r.URL.Query().Get(name); v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *httpRouterContext) Queries() map[string]string {
	queries := make(map[string]string)
	for k, v := range c.r.URL.Query() {
		if len(v) > 0 {
			queries[k] = v[0]
		}
	}
	return queries
}

func (c *httpRouterContext) Header(key string) string {
	return c.r.Header.Get(key)
}

func (c *httpRouterContext) SetHeader(key, value string) Context {
	c.w.Header().Set(key, value)
	return c
}

func (c *httpRouterContext) Status(code int) Context {
	c.statusCode = code
	return c
}

func (c *httpRouterContext) Send(body []byte) error {
	if c.statusCode > 0 {
		c.w.WriteHeader(c.statusCode)
	}
	_, err := c.w.Write(body)
	return err
}

func (c *httpRouterContext) JSON(code int, v any) error {
	c.w.Header().Set(HeaderContentType, "application/json")
	c.w.WriteHeader(code)
	return json.NewEncoder(c.w).Encode(v)
}

func (c *httpRouterContext) Context() context.Context {
	return c.r.Context()
}

func (c *httpRouterContext) SetContext(ctx context.Context) {
	c.r = c.r.WithContext(ctx)
}
