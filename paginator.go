package autocrud

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageParam = "page"
	DefaultSizeParam = "page_size"
	DefaultPageSize  = 20

	// PageAll disables slicing when used as page or page_size.
	PageAll = "all"
	// PageLast selects the last page.
	PageLast = "last"
)

// Paginator slices an ordered collection into pages.
type Paginator struct {
	DefaultSize int
	// MaxSize caps a requested page size. Zero means no cap.
	MaxSize   int
	PageParam string
	SizeParam string
}

// NewPaginator returns a paginator with the default parameter names.
func NewPaginator(defaultSize, maxSize int) Paginator {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	return Paginator{
		DefaultSize: defaultSize,
		MaxSize:     maxSize,
		PageParam:   DefaultPageParam,
		SizeParam:   DefaultSizeParam,
	}
}

// PageRequest is the parsed pagination state of one request.
type PageRequest struct {
	Number int
	Size   int
	All    bool
	Last   bool
}

// Page is one slice of a collection.
type Page struct {
	Items      []any
	Count      int
	Number     int
	TotalPages int
	Size       int
	All        bool
	Next       *string
	Previous   *string
}

// Parse reads page and page size. The first source holding a key wins,
// so callers pass raw request parameters before decoded ones. Bad
// numbers fall back to page 1 and the default size.
func (p Paginator) Parse(sources ...map[string]string) PageRequest {
	p = p.withDefaults()
	req := PageRequest{Number: 1, Size: p.DefaultSize}

	if raw, ok := lookupParam(p.SizeParam, sources); ok {
		switch {
		case strings.EqualFold(raw, PageAll):
			req.All = true
		default:
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				req.Size = n
			}
		}
	}
	if p.MaxSize > 0 && req.Size > p.MaxSize {
		req.Size = p.MaxSize
	}

	if raw, ok := lookupParam(p.PageParam, sources); ok {
		switch {
		case strings.EqualFold(raw, PageAll):
			req.All = true
		case strings.EqualFold(raw, PageLast):
			req.Last = true
		default:
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				req.Number = n
			}
		}
	}

	return req
}

// Paginate counts c and fetches the requested page. Out of range page
// numbers are clamped. With All set the whole collection is one page.
// Cursors are built from requestURL, which may be nil.
func (p Paginator) Paginate(ctx context.Context, c Collection, req PageRequest, requestURL *url.URL) (*Page, error) {
	p = p.withDefaults()

	if req.All {
		items, err := c.Fetch(ctx, 0, -1)
		if err != nil {
			return nil, err
		}
		return &Page{
			Items:      items,
			Count:      len(items),
			Number:     1,
			TotalPages: 1,
			Size:       len(items),
			All:        true,
		}, nil
	}

	size := req.Size
	if size <= 0 {
		size = p.DefaultSize
	}

	count, err := c.Count(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := TotalPages(count, size)

	number := req.Number
	if req.Last || number > totalPages {
		number = totalPages
	}
	if number < 1 {
		number = 1
	}

	page := &Page{
		Count:      count,
		Number:     number,
		TotalPages: totalPages,
		Size:       size,
		Items:      []any{},
	}

	if count > 0 {
		items, err := c.Fetch(ctx, (number-1)*size, size)
		if err != nil {
			return nil, err
		}
		page.Items = items
	}

	if number < totalPages {
		page.Next = p.link(requestURL, number+1)
	}
	if number > 1 {
		page.Previous = p.link(requestURL, number-1)
	}

	return page, nil
}

// TotalPages is ceil(count / size).
func TotalPages(count, size int) int {
	if size <= 0 {
		return 0
	}
	pages := count / size
	if count%size != 0 {
		pages++
	}
	return pages
}

// link points at page number of the same request. The first page drops
// the page parameter.
func (p Paginator) link(requestURL *url.URL, number int) *string {
	u := &url.URL{}
	if requestURL != nil {
		clone := *requestURL
		u = &clone
	}

	q := u.Query()
	if number <= 1 {
		q.Del(p.PageParam)
	} else {
		q.Set(p.PageParam, strconv.Itoa(number))
	}
	u.RawQuery = q.Encode()

	link := u.String()
	return &link
}

func (p Paginator) withDefaults() Paginator {
	if p.DefaultSize <= 0 {
		p.DefaultSize = DefaultPageSize
	}
	if p.PageParam == "" {
		p.PageParam = DefaultPageParam
	}
	if p.SizeParam == "" {
		p.SizeParam = DefaultSizeParam
	}
	return p
}

func lookupParam(key string, sources []map[string]string) (string, bool) {
	for _, src := range sources {
		if v, ok := src[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
