package handler

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/issuedesk/tracker/internal/core/ports"
)

// pageResponse is the envelope of every paginated listing.
type pageResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newPageResponse[S, T any](c echo.Context, p *ports.Page[S], mapFn func(S) T) pageResponse[T] {
	results := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		results = append(results, mapFn(item))
	}

	resp := pageResponse[T]{Count: p.Count, Results: results}
	if p.HasNext {
		next := pageURL(c, p.Number+1)
		resp.Next = &next
	}
	if p.HasPrior {
		prev := pageURL(c, p.Number-1)
		resp.Previous = &prev
	}
	return resp
}

// pageURL rebuilds the request URL pointing at page. The first page is
// linked without a page parameter.
func pageURL(c echo.Context, page int) string {
	req := c.Request()
	q := req.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   c.Scheme(),
		Host:     req.Host,
		Path:     req.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
