package transport

import (
	"net/http"
	"net/url"

	"github.com/goliatone/go-autocrud"
)

// MountOption configures Mount.
type MountOption func(*mountConfig)

type mountConfig struct {
	metrics     *Metrics
	metricsPath string
	middlewares []MiddlewareFunc
}

// DefaultMetricsPath serves the metrics when WithMetrics is set.
const DefaultMetricsPath = "/metrics"

// WithMetricsPath moves the metrics endpoint. An empty path keeps the
// default.
func WithMetricsPath(path string) MountOption {
	return func(c *mountConfig) {
		if path != "" {
			c.metricsPath = path
		}
	}
}

// WithMetrics instruments every mounted route.
func WithMetrics(m *Metrics) MountOption {
	return func(c *mountConfig) {
		c.metrics = m
	}
}

// WithMiddleware wraps every mounted route.
func WithMiddleware(mw ...MiddlewareFunc) MountOption {
	return func(c *mountConfig) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// Mount registers the read endpoints of every resource:
//
//	GET /_resources              registered resources
//	GET /<plural>                list, or {count} with check_last_updated
//	GET /<plural>/:id            one row
//	GET /_meta/<plural>          resource description
//	GET /_periods/<plural>       period labels of a date field
func Mount[T any](r Router[T], registry *autocrud.Registry, opts ...MountOption) {
	cfg := &mountConfig{metricsPath: DefaultMetricsPath}
	for _, opt := range opts {
		opt(cfg)
	}

	route := func(path string, h HandlerFunc) {
		mws := append([]MiddlewareFunc{}, cfg.middlewares...)
		if cfg.metrics != nil {
			mws = append(mws, cfg.metrics.Instrument(path))
		}
		r.Get(path, h, mws...)
	}

	resources := registry.Resources()

	route("/_resources", func(c Context) error {
		out := make([]map[string]string, 0, len(resources))
		for _, res := range resources {
			out = append(out, map[string]string{"name": res.Name, "route": res.Route})
		}
		return c.JSON(http.StatusOK, out)
	})

	for _, res := range resources {
		vs := res.ViewSet

		route(res.Route, listHandler(vs))
		route(res.Route+"/:id", retrieveHandler(vs))
		route("/_meta"+res.Route, metaHandler(res))
		route("/_periods"+res.Route, periodsHandler(vs))
	}

	if cfg.metrics != nil {
		r.HandleHTTP(GET, cfg.metricsPath, cfg.metrics.Handler())
	}
}

func listHandler(vs *autocrud.ViewSet) HandlerFunc {
	return func(c Context) error {
		out, err := vs.Respond(c.Context(), listRequest(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	}
}

func retrieveHandler(vs *autocrud.ViewSet) HandlerFunc {
	return func(c Context) error {
		out, err := vs.Retrieve(c.Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	}
}

func metaHandler(res *autocrud.Resource) HandlerFunc {
	meta := res.Meta()
	return func(c Context) error {
		return c.JSON(http.StatusOK, meta)
	}
}

func periodsHandler(vs *autocrud.ViewSet) HandlerFunc {
	return func(c Context) error {
		field := c.Query("field")
		if field == "" {
			return autocrud.NewBadRequestError("field is required", nil)
		}

		parts, err := autocrud.ParsePeriodParts(c.Query("parts", "year,month"))
		if err != nil {
			return autocrud.NewBadRequestError(err.Error(), map[string]any{"parts": c.Query("parts")})
		}

		req := listRequest(c)
		for _, key := range []string{"field", "parts", "separator"} {
			delete(req.Params, key)
		}

		labels, err := vs.Periods(c.Context(), req, field, c.Query("separator", autocrud.DefaultPeriodSeparator), parts...)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"periods": labels})
	}
}

func listRequest(c Context) autocrud.ListRequest {
	u, err := url.ParseRequestURI(c.OriginalURL())
	if err != nil {
		u = &url.URL{Path: c.Path()}
	}
	return autocrud.ListRequest{Params: c.Queries(), URL: u}
}
