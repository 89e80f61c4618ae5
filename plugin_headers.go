package github

import "net/http"

// HeaderDefaultsPlugin sets headers the request does not already carry.
type HeaderDefaultsPlugin struct {
	Headers http.Header
}

// NewHeaderDefaultsPlugin copies headers into a new plugin.
func NewHeaderDefaultsPlugin(headers map[string]string) *HeaderDefaultsPlugin {
	return &HeaderDefaultsPlugin{Headers: toHeader(headers)}
}

func (p *HeaderDefaultsPlugin) Kind() PluginKind { return KindHeaderDefaults }

func (p *HeaderDefaultsPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	fillHeaders(req.Header, p.Headers)
	return next.RoundTrip(req)
}

// HeaderAppendPlugin carries the client's managed default header set. Its
// headers are appended to requests that do not already carry them, so values
// supplied with a call take precedence.
type HeaderAppendPlugin struct {
	Headers http.Header
}

// NewHeaderAppendPlugin copies headers into a new plugin.
func NewHeaderAppendPlugin(headers http.Header) *HeaderAppendPlugin {
	return &HeaderAppendPlugin{Headers: headers.Clone()}
}

func (p *HeaderAppendPlugin) Kind() PluginKind { return KindHeaderAppend }

func (p *HeaderAppendPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	fillHeaders(req.Header, p.Headers)
	return next.RoundTrip(req)
}

func fillHeaders(dst, src http.Header) {
	for key, values := range src {
		if len(dst.Values(key)) > 0 {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// mergeHeaders layers override on top of base; keys present in override
// replace those in base.
func mergeHeaders(base, override http.Header) http.Header {
	out := base.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for key, values := range override {
		out.Del(key)
		for _, v := range values {
			out.Add(key, v)
		}
	}
	return out
}
