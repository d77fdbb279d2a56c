package httpclient

import "context"

// HTTPClientInterface is the transport the portal protocol client depends on.
type HTTPClientInterface interface {
	// Get fetches url. Any status code is returned as a Response.
	Get(ctx context.Context, url string) (*Response, error)

	// PostJSON posts body to url as application/json. Any status code is returned as a Response.
	PostJSON(ctx context.Context, url string, body []byte) (*Response, error)
}

var _ HTTPClientInterface = &HTTPClient{}
