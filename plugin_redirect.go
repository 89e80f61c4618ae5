package github

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxRedirects is the redirect limit of RedirectPlugin.
const DefaultMaxRedirects = 5

// RedirectPlugin follows 3xx responses carrying a Location header. The
// redirected request goes through the plugins below this one only.
type RedirectPlugin struct {
	MaxRedirects int
}

// NewRedirectPlugin creates a plugin following at most max redirects; a
// non-positive max uses DefaultMaxRedirects.
func NewRedirectPlugin(max int) *RedirectPlugin {
	if max <= 0 {
		max = DefaultMaxRedirects
	}
	return &RedirectPlugin{MaxRedirects: max}
}

func (p *RedirectPlugin) Kind() PluginKind { return KindRedirect }

func (p *RedirectPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	visited := map[string]bool{req.URL.String(): true}
	current := req
	for redirects := 0; ; redirects++ {
		resp, err := next.RoundTrip(current)
		if err != nil {
			return resp, err
		}

		location := resp.Header.Get("Location")
		if !isRedirectStatus(resp.StatusCode) || location == "" {
			return resp, nil
		}

		target, err := current.URL.Parse(location)
		if err != nil {
			return resp, nil
		}
		if redirects >= p.limit() {
			drainBody(resp)
			return nil, p.fail(current, resp.StatusCode, fmt.Sprintf("too many redirects (max %d)", p.limit()))
		}
		if visited[target.String()] {
			drainBody(resp)
			return nil, p.fail(current, resp.StatusCode, fmt.Sprintf("circular redirect to %s", target))
		}
		visited[target.String()] = true
		drainBody(resp)

		current = redirectRequest(current, target, resp.StatusCode, body)
	}
}

func (p *RedirectPlugin) limit() int {
	if p.MaxRedirects <= 0 {
		return DefaultMaxRedirects
	}
	return p.MaxRedirects
}

func (p *RedirectPlugin) fail(req *http.Request, status int, msg string) *ClientError {
	return &ClientError{
		Type:       ErrorTypeRedirect,
		Message:    msg,
		StatusCode: status,
		Method:     req.Method,
		URL:        req.URL.String(),
		Timestamp:  time.Now(),
	}
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func redirectRequest(prev *http.Request, target *url.URL, status int, body []byte) *http.Request {
	next := prev.Clone(prev.Context())
	next.URL = target
	next.Host = target.Host
	if target.Host != prev.URL.Host {
		next.Header.Del("Authorization")
	}

	keepMethod := status == http.StatusTemporaryRedirect || status == http.StatusPermanentRedirect ||
		((status == http.StatusMovedPermanently || status == http.StatusFound) &&
			(prev.Method == http.MethodGet || prev.Method == http.MethodHead))

	if keepMethod {
		if body != nil {
			next.Body = io.NopCloser(bytes.NewReader(body))
			next.ContentLength = int64(len(body))
		}
		return next
	}

	next.Method = http.MethodGet
	next.Body = nil
	next.ContentLength = 0
	next.Header.Del("Content-Type")
	next.Header.Del("Content-Length")
	return next
}

func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
