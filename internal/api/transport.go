package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
)

// maxErrorBody bounds how much of a failed response body is kept for logs.
const maxErrorBody = 4 << 10

// RequestCounter counts the requests sent through a transport.
type RequestCounter struct {
	count atomic.Int64
	base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (c *RequestCounter) RoundTrip(req *http.Request) (*http.Response, error) {
	n := c.count.Add(1)
	logger.WithField("request", n).Debugf("%s %s", req.Method, req.URL.Path)
	return c.base.RoundTrip(req)
}

// Count returns the number of requests sent so far.
func (c *RequestCounter) Count() int64 {
	return c.count.Load()
}

// NewHTTPClient creates the HTTP client shared by the REST and GraphQL
// clients. Requests are authenticated with ts and, when cache is set, GET
// responses are revalidated through an in-memory cache that lives only as long
// as the process.
func NewHTTPClient(ts oauth2.TokenSource, cache bool) (*http.Client, *RequestCounter) {
	counter := &RequestCounter{base: http.DefaultTransport}

	var transport http.RoundTripper = counter
	if ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	if cache {
		cacheTransport := httpcache.NewMemoryCacheTransport()
		cacheTransport.Transport = transport
		transport = cacheTransport
	}

	return &http.Client{Transport: transport}, counter
}

// statusTransport turns non-2xx responses into TransportErrors so that
// callers which only see an opaque error can still tell transport failures
// apart from API error payloads.
type statusTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &TransportError{
		Op:         fmt.Sprintf("%s %s", req.Method, req.URL.Path),
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

func withStatusCheck(client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport:     &statusTransport{base: base},
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
		Timeout:       client.Timeout,
	}
}
