package github

import (
	"net/http"
)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for plugins and transports
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// PluginKind identifies a plugin variant. At most one plugin per kind is kept
// by ReplacePlugin.
type PluginKind int

const (
	KindAddHost PluginKind = iota
	KindPathPrepend
	KindHeaderDefaults
	KindHeaderAppend
	KindAuthentication
	KindHistory
	KindRedirect
	KindCache
	KindErrorThrower
	KindMetrics
	KindLogging
)

var pluginKindNames = map[PluginKind]string{
	KindAddHost:        "add_host",
	KindPathPrepend:    "path_prepend",
	KindHeaderDefaults: "header_defaults",
	KindHeaderAppend:   "header_append",
	KindAuthentication: "authentication",
	KindHistory:        "history",
	KindRedirect:       "redirect",
	KindCache:          "cache",
	KindErrorThrower:   "error_thrower",
	KindMetrics:        "metrics",
	KindLogging:        "logging",
}

func (k PluginKind) String() string {
	if name, ok := pluginKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Plugin intercepts a request before it reaches next and the response on its
// way back. Plugins are composed in insertion order: the first plugin added
// sees the request first and the response last.
type Plugin interface {
	Kind() PluginKind
	Handle(req *http.Request, next RoundTripper) (*http.Response, error)
}

// Option represents a configuration option
type Option func(*Client)

// Logger is the logging surface used by the client. Arguments after msg are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
