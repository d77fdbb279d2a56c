// Package httpclient provides the HTTP transport used to talk to the portal.
// It applies the browser-like headers the portal expects, routes traffic through an
// optional proxy and reports network failures as transport errors. Status codes are
// returned to the caller, never turned into errors.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/pronote/internal/pronote/protoerror"
)

// DefaultUserAgent is a desktop browser user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxBodySize bounds how much of a response is read.
const maxBodySize = 8 << 20

// Configurator provides the transport settings.
type Configurator interface {
	GetUserAgent() string
	GetProxyURL() string
	GetTimeout() time.Duration
	GetInsecureSkipVerify() bool
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPClient sends requests to the portal.
type HTTPClient struct {
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client from config. It fails only for an unparsable proxy URL.
func NewClient(config Configurator) (*HTTPClient, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p := config.GetProxyURL(); p != "" {
		proxyURL, err := url.Parse(p)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", p)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if config.GetInsecureSkipVerify() {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	ua := config.GetUserAgent()
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &HTTPClient{
		userAgent: ua,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.GetTimeout(),
		},
	}, nil
}

// RequestOptions describes one request.
type RequestOptions struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// DoRequest sends the request and reads the whole response body.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, protoerror.ErrTransport.MsgErr("failed to create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, protoerror.ErrTransport.MsgErr(fmt.Sprintf("%s %s failed", opts.Method, redact(opts.URL)), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, protoerror.ErrTransport.MsgErr("failed to read response body", err)
	}

	log.Debug().
		Str("method", opts.Method).
		Str("url", redact(opts.URL)).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("portal request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Get fetches url.
func (c *HTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodGet,
		URL:    url,
	})
}

// PostJSON posts body as JSON with an explicit Content-Length.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		URL:    url,
		Body:   body,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": strconv.Itoa(len(body)),
			"Accept":         "*/*",
		},
	})
}

// redact drops the query string, which can carry credentials on some portals.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
