package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// FiberAdapter implements Server for Fiber framework
type FiberAdapter struct {
	app    *fiber.App
	router *FiberRouter
}

// NewFiberAdapter builds the fiber app. Errors that escape every
// handler are rendered with the default error configuration.
func NewFiberAdapter(opts ...func(*fiber.App) *fiber.App) Server[*fiber.App] {
	cfg := DefaultErrorHandlerConfig()
	app := fiber.New(fiber.Config{
		UnescapePath:          true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return writeError(NewFiberContext(c), err, cfg)
		},
	})

	if len(opts) == 0 {
		opts = append(opts, DefaultFiberOptions)
	}

	for _, opt := range opts {
		app = opt(app)
	}

	return &FiberAdapter{app: app, router: &FiberRouter{app: app, routes: &routeTable{}}}
}

func DefaultFiberOptions(app *fiber.App) *fiber.App {
	app.Use(recover.New())
	return app
}

func (a *FiberAdapter) Router() Router[*fiber.App] {
	return a.router
}

func (a *FiberAdapter) Serve(address string) error {
	return a.app.Listen(address)
}

func (a *FiberAdapter) Shutdown(ctx context.Context) error {
	return a.app.ShutdownWithContext(ctx)
}

func (a *FiberAdapter) WrappedRouter() *fiber.App {
	return a.app
}

// FiberRouter implements Router for Fiber
type FiberRouter struct {
	app        *fiber.App
	prefix     string
	middleware []MiddlewareFunc
	routes     *routeTable
}

func (r *FiberRouter) Handle(method HTTPMethod, path string, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	fullPath := joinPath(r.prefix, path)
	all := append(append([]MiddlewareFunc{}, r.middleware...), middlewares...)
	h := chain(handler, all...)

	r.app.Add(string(method), fullPath, func(c *fiber.Ctx) error {
		return h(NewFiberContext(c))
	})
	r.routes.add(method, fullPath)
}

func (r *FiberRouter) HandleHTTP(method HTTPMethod, path string, handler http.Handler) {
	fullPath := joinPath(r.prefix, path)
	r.app.Add(string(method), fullPath, adaptor.HTTPHandler(handler))
	r.routes.add(method, fullPath)
}

func (r *FiberRouter) Get(path string, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	r.Handle(GET, path, handler, middlewares...)
}

func (r *FiberRouter) Group(prefix string) Router[*fiber.App] {
	return &FiberRouter{
		app:        r.app,
		prefix:     joinPath(r.prefix, prefix),
		middleware: append([]MiddlewareFunc{}, r.middleware...),
		routes:     r.routes,
	}
}

// Use applies middlewares to routes registered afterwards.
func (r *FiberRouter) Use(middlewares ...MiddlewareFunc) Router[*fiber.App] {
	r.middleware = append(r.middleware, middlewares...)
	return r
}

func (r *FiberRouter) Routes() []RouteDefinition {
	return r.routes.list()
}

type fiberContext struct {
	ctx *fiber.Ctx
}

func NewFiberContext(c *fiber.Ctx) Context {
	return &fiberContext{ctx: c}
}

func (c *fiberContext) Method() string      { return c.ctx.Method() }
func (c *fiberContext) Path() string        { return c.ctx.Path() }
func (c *fiberContext) OriginalURL() string { return c.ctx.OriginalURL() }
func (c *fiberContext) IP() string          { return c.ctx.IP() }
func (c *fiberContext) Host() string        { return stripPort(c.ctx.Hostname()) }

func (c *fiberContext) Param(name string) string {
	return c.ctx.Params(name)
}

func (c *fiberContext) Query(name string, defaultValue ...string) string {
	return c.ctx.Query(name, defaultValue...)
}

func (c *fiberContext) Queries() map[string]string {
	// fiber reuses its buffers between requests
	out := make(map[string]string)
	for k, v := range c.ctx.Queries() {
		out[strings.Clone(k)] = strings.Clone(v)
	}
	return out
}

func (c *fiberContext) Header(key string) string {
	return c.ctx.Get(key)
}

func (c *fiberContext) SetHeader(key, value string) Context {
	c.ctx.Set(key, value)
	return c
}

func (c *fiberContext) Status(code int) Context {
	c.ctx.Status(code)
	return c
}

func (c *fiberContext) Send(body []byte) error {
	return c.ctx.Send(body)
}

func (c *fiberContext) JSON(code int, v any) error {
	return c.ctx.Status(code).JSON(v)
}

func (c *fiberContext) Context() context.Context {
	return c.ctx.UserContext()
}

func (c *fiberContext) SetContext(ctx context.Context) {
	c.ctx.SetUserContext(ctx)
}

type routeTable struct {
	mu     sync.Mutex
	routes []RouteDefinition
}

func (t *routeTable) add(method HTTPMethod, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, RouteDefinition{Method: method, Path: path})
}

func (t *routeTable) list() []RouteDefinition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RouteDefinition(nil), t.routes...)
}
