package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-autocrud"
	"github.com/goliatone/go-autocrud/memstore"
)

type book struct {
	ID        int64     `bun:"id,pk"`
	Title     string    `bun:"title" crud:"display"`
	Published time.Time `bun:"published" crud:"date"`
	UpdatedAt time.Time `bun:"updated_at"`
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func newRegistry(t *testing.T) *autocrud.Registry {
	t.Helper()

	store, err := memstore.New(
		&book{ID: 1, Title: "Dune", Published: day("2024-01-10"), UpdatedAt: day("2024-05-01")},
		&book{ID: 2, Title: "Emma", Published: day("2024-03-02"), UpdatedAt: day("2024-06-01")},
		&book{ID: 3, Title: "Ulysses", Published: day("2024-02-20"), UpdatedAt: day("2024-07-01")},
	)
	require.NoError(t, err)

	registry := autocrud.NewRegistry(autocrud.WithLogger(silentLogger{}))
	_, err = autocrud.Register[book](registry, store.Source())
	require.NoError(t, err)
	return registry
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func httprouterServer(t *testing.T, opts ...MountOption) http.Handler {
	t.Helper()
	server := NewHTTPRouterAdapter()
	router := server.Router()
	router.Use(WithErrorHandler(ErrorHandlerConfig{Logger: silentLogger{}}), RequestID())
	Mount(router, newRegistry(t), opts...)
	return server.WrappedRouter()
}

func TestHTTPRouterList(t *testing.T) {
	handler := httprouterServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books?page_size=2&order_by=title", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec.Body)

	assert.EqualValues(t, 3, body["count"])
	assert.EqualValues(t, 2, body["total_pages"])
	assert.EqualValues(t, 1, body["current_page"])
	assert.Equal(t, []any{float64(1), float64(2)}, body["ids"])
	assert.Contains(t, body["next"], "page=2")
	assert.Nil(t, body["previous"])
	assert.Equal(t, []any{"published"}, body["date_fields"])
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	results := body["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "Dune", first["display_name"])
}

func TestHTTPRouterCheckLastUpdated(t *testing.T) {
	handler := httprouterServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books?check_last_updated=1&last_updated=2024-06-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"count": float64(2)}, decode(t, rec.Body))
}

func TestHTTPRouterRetrieve(t *testing.T) {
	handler := httprouterServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ulysses", decode(t, rec.Body)["title"])

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/books/99", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decode(t, rec.Body)["error"].(map[string]any)
	assert.EqualValues(t, 404, errBody["code"])
	assert.Equal(t, "req-1", errBody["request_id"])
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
}

func TestHTTPRouterPeriods(t *testing.T) {
	handler := httprouterServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_periods/books?field=published&parts=year,month", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"2024-01", "2024-02", "2024-03"}, decode(t, rec.Body)["periods"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_periods/books?field=title", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_periods/books", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFiberListAndMeta(t *testing.T) {
	server := NewFiberAdapter()
	router := server.Router()
	router.Use(WithErrorHandler(ErrorHandlerConfig{Logger: silentLogger{}}))
	Mount(router, newRegistry(t))

	app := server.WrappedRouter()

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/books?page=last&page_size=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decode(t, res.Body)
	assert.EqualValues(t, 2, body["current_page"])
	assert.Nil(t, body["next"])
	assert.Contains(t, body["previous"], "/books")

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/_meta/books", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	meta := decode(t, res.Body)
	assert.Equal(t, "book", meta["name"])
	assert.Equal(t, "/books", meta["route"])
	assert.Equal(t, []any{"title"}, meta["display_fields"])

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/_resources", nil))
	require.NoError(t, err)
	var resources []map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resources))
	assert.Equal(t, []map[string]string{{"name": "book", "route": "/books"}}, resources)
}

func TestFiberUnhandledErrorUsesErrorHandler(t *testing.T) {
	server := NewFiberAdapter()
	Mount(server.Router(), newRegistry(t))

	res, err := server.WrappedRouter().Test(httptest.NewRequest(http.MethodGet, "/books/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics(nil)
	handler := httprouterServer(t, WithMetrics(metrics))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/99", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	text := rec.Body.String()
	assert.Contains(t, text, `autocrud_http_requests_total{method="GET",route="/books",status="200"} 1`)
	assert.Contains(t, text, `autocrud_http_requests_total{method="GET",route="/books/:id",status="404"} 1`)
}

func TestRateLimit(t *testing.T) {
	handler := httprouterServer(t, WithMiddleware(RateLimit(rate.NewLimiter(0, 1))))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"code":429`))
}

func TestMetricsPath(t *testing.T) {
	handler := httprouterServer(t, WithMetrics(NewMetrics(nil)), WithMetricsPath("/_metrics"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllowedHosts(t *testing.T) {
	handler := httprouterServer(t, WithMiddleware(AllowedHosts("books.example.com", "*.internal")))

	tests := []struct {
		host string
		want int
	}{
		{"books.example.com", http.StatusOK},
		{"Books.Example.com:8080", http.StatusOK},
		{"api.internal", http.StatusOK},
		{"evil.com", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	open := httprouterServer(t, WithMiddleware(AllowedHosts()))
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllowedOrigins(t *testing.T) {
	handler := httprouterServer(t, WithMiddleware(AllowedOrigins("https://app.example.com")))

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set(HeaderOrigin, "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get(HeaderAllowOrigin))
	assert.Equal(t, HeaderOrigin, rec.Header().Get(HeaderVary))

	req = httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set(HeaderOrigin, "https://other.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(HeaderAllowOrigin))
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "example.com", stripPort("example.com:80"))
	assert.Equal(t, "example.com", stripPort("example.com"))
	assert.Equal(t, "::1", stripPort("[::1]:8080"))
}

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) MiddlewareFunc {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				calls = append(calls, name)
				return next(c)
			}
		}
	}

	h := chain(func(Context) error {
		calls = append(calls, "handler")
		return nil
	}, mw("a"), mw("b"))

	require.NoError(t, h(nil))
	assert.Equal(t, []string{"a", "b", "handler"}, calls)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/api/books", joinPath("/api/", "books"))
	assert.Equal(t, "/api", joinPath("/api", "/"))
	assert.Equal(t, "/books", joinPath("", "/books"))
}
