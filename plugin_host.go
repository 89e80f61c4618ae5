package github

import (
	"net/http"
	"net/url"
	"strings"
)

// AddHostPlugin points requests at Host. Requests that already carry a host
// are left alone unless Replace is set.
type AddHostPlugin struct {
	Host    *url.URL
	Replace bool
}

// NewAddHostPlugin parses rawURL and returns the plugin. Only the scheme and
// host of rawURL are used.
func NewAddHostPlugin(rawURL string, replace bool) (*AddHostPlugin, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, invalidArgument("invalid host url %q: %v", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, invalidArgument("host url %q must be absolute", rawURL)
	}
	return &AddHostPlugin{Host: u, Replace: replace}, nil
}

func (p *AddHostPlugin) Kind() PluginKind { return KindAddHost }

func (p *AddHostPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	if p.Host != nil && (p.Replace || req.URL.Host == "") {
		req.URL.Scheme = p.Host.Scheme
		req.URL.Host = p.Host.Host
		req.Host = p.Host.Host
	}
	return next.RoundTrip(req)
}

// PathPrependPlugin prefixes request paths with Prefix. When Host is set,
// only requests to that host are prefixed, so redirects to other hosts keep
// their path.
type PathPrependPlugin struct {
	Prefix string
	Host   string
}

// NewPathPrependPlugin normalises prefix to a leading slash and no trailing slash.
func NewPathPrependPlugin(prefix, host string) *PathPrependPlugin {
	prefix = "/" + strings.Trim(prefix, "/")
	return &PathPrependPlugin{Prefix: prefix, Host: host}
}

func (p *PathPrependPlugin) Kind() PluginKind { return KindPathPrepend }

func (p *PathPrependPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	if p.applies(req) {
		req.URL.Path = p.Prefix + "/" + strings.TrimLeft(req.URL.Path, "/")
		if req.URL.RawPath != "" {
			req.URL.RawPath = p.Prefix + "/" + strings.TrimLeft(req.URL.RawPath, "/")
		}
	}
	return next.RoundTrip(req)
}

func (p *PathPrependPlugin) applies(req *http.Request) bool {
	if p.Prefix == "" || p.Prefix == "/" {
		return false
	}
	if p.Host != "" && req.URL.Host != "" && req.URL.Host != p.Host {
		return false
	}
	// Redirect targets already carry the prefix.
	return !hasPathPrefix(req.URL.Path, p.Prefix)
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
