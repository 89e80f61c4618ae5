package github

import (
	"encoding/base64"
	"net/http"
)

// Authentication methods accepted by Client.Authenticate.
const (
	// AuthURLToken sends the token as the access_token query parameter.
	AuthURLToken = "url_token"
	// AuthURLClientID sends client_id and client_secret query parameters.
	AuthURLClientID = "url_client_id"
	// AuthHTTPPassword uses HTTP Basic with a login and password.
	AuthHTTPPassword = "http_password"
	// AuthHTTPToken sends "Authorization: token <token>".
	AuthHTTPToken = "http_token"
)

func isAuthMethod(s string) bool {
	switch s {
	case AuthURLToken, AuthURLClientID, AuthHTTPPassword, AuthHTTPToken:
		return true
	}
	return false
}

// AuthenticationPlugin signs requests with one of the four authentication
// methods. When Host is set, requests to other hosts go out unsigned.
type AuthenticationPlugin struct {
	Identifier string
	Secret     string
	Method     string
	Host       string
}

// NewAuthenticationPlugin validates method and returns the plugin.
func NewAuthenticationPlugin(identifier, secret, method string) (*AuthenticationPlugin, error) {
	if !isAuthMethod(method) {
		return nil, invalidArgument("unknown authentication method %q", method)
	}
	return &AuthenticationPlugin{
		Identifier: identifier,
		Secret:     secret,
		Method:     method,
	}, nil
}

func (p *AuthenticationPlugin) Kind() PluginKind { return KindAuthentication }

func (p *AuthenticationPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	if p.Host != "" && req.URL.Host != "" && req.URL.Host != p.Host {
		return next.RoundTrip(req)
	}

	switch p.Method {
	case AuthHTTPPassword:
		creds := base64.StdEncoding.EncodeToString([]byte(p.Identifier + ":" + p.Secret))
		req.Header.Set("Authorization", "Basic "+creds)
	case AuthHTTPToken:
		req.Header.Set("Authorization", "token "+p.Identifier)
	case AuthURLClientID:
		q := req.URL.Query()
		q.Set("client_id", p.Identifier)
		q.Set("client_secret", p.Secret)
		req.URL.RawQuery = q.Encode()
	case AuthURLToken:
		q := req.URL.Query()
		q.Set("access_token", p.Identifier)
		req.URL.RawQuery = q.Encode()
	}
	return next.RoundTrip(req)
}
