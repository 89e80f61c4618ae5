// Package github is a client for the GitHub v3 REST API built around a
// composable request pipeline.
//
// Every request passes through an ordered chain of plugins before reaching
// the transport:
//
//   - Host and path rewriting (AddHostPlugin, PathPrependPlugin)
//   - Default and appended headers (HeaderDefaultsPlugin, HeaderAppendPlugin)
//   - Authentication with a token, a password or client credentials
//   - Redirect following with loop detection
//   - Request history and an HTTP cache honouring Cache-Control and ETags
//   - Translation of error statuses into typed *ClientError values
//   - Prometheus metrics and structured request logging
//
// The chain is held by a Builder. Mutating the builder marks it modified and
// the next request rebuilds the composed client; otherwise the composed
// client is reused.
//
// Typical usage:
//
//	client := github.New(
//	    github.WithAuthentication(os.Getenv("GITHUB_TOKEN"), "", github.AuthHTTPToken),
//	    github.WithCache(5*time.Minute),
//	)
//	resp, err := client.Repos().Show(ctx, "golang", "go")
//	if github.IsNotFound(err) {
//	    ...
//	}
//
// Resource wrappers are available by name as well, e.g. client.API("pulls").
// GitHub Enterprise installations are reached with WithEnterpriseURL or
// Client.SetEnterpriseURL, which route requests to <host>/api/<version>.
package github
