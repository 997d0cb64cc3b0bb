package httpclient

import (
	"context"
	"net/url"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different
// transports. Query parameters are passed separately so callers never build
// query strings by hand (provider tokens travel here).
type Client interface {
	Get(ctx context.Context, rawURL string, query url.Values, headers map[string]string) (Response, error)
}
