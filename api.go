package github

import (
	"fmt"
	"net/url"
	"sort"
)

// API is a resource wrapper bound to a Client.
type API interface {
	// Name returns the canonical resource name.
	Name() string
}

type apiConstructor func(*Client) API

// apiNames maps every accepted name and alias to its wrapper.
var apiNames = map[string]apiConstructor{
	"me":           func(c *Client) API { return c.CurrentUser() },
	"current_user": func(c *Client) API { return c.CurrentUser() },
	"currentUser":  func(c *Client) API { return c.CurrentUser() },

	"user":  func(c *Client) API { return c.Users() },
	"users": func(c *Client) API { return c.Users() },

	"repo":         func(c *Client) API { return c.Repos() },
	"repos":        func(c *Client) API { return c.Repos() },
	"repository":   func(c *Client) API { return c.Repos() },
	"repositories": func(c *Client) API { return c.Repos() },

	"issue":  func(c *Client) API { return c.Issues() },
	"issues": func(c *Client) API { return c.Issues() },

	"pr":            func(c *Client) API { return c.PullRequests() },
	"pulls":         func(c *Client) API { return c.PullRequests() },
	"pull_request":  func(c *Client) API { return c.PullRequests() },
	"pullRequest":   func(c *Client) API { return c.PullRequests() },
	"pull_requests": func(c *Client) API { return c.PullRequests() },
	"pullRequests":  func(c *Client) API { return c.PullRequests() },

	"gist":  func(c *Client) API { return c.Gists() },
	"gists": func(c *Client) API { return c.Gists() },

	"organization":  func(c *Client) API { return c.Organizations() },
	"organizations": func(c *Client) API { return c.Organizations() },

	"team":  func(c *Client) API { return c.Teams() },
	"teams": func(c *Client) API { return c.Teams() },

	"search":   func(c *Client) API { return c.Search() },
	"markdown": func(c *Client) API { return c.Markdown() },

	"notification":  func(c *Client) API { return c.Notifications() },
	"notifications": func(c *Client) API { return c.Notifications() },

	"rate_limit": func(c *Client) API { return c.RateLimits() },
	"rateLimit":  func(c *Client) API { return c.RateLimits() },

	"meta": func(c *Client) API { return c.Meta() },

	"authorization":  func(c *Client) API { return c.Authorizations() },
	"authorizations": func(c *Client) API { return c.Authorizations() },

	"deployment":  func(c *Client) API { return c.Deployments() },
	"deployments": func(c *Client) API { return c.Deployments() },

	"git":      func(c *Client) API { return c.GitData() },
	"git_data": func(c *Client) API { return c.GitData() },
	"gitData":  func(c *Client) API { return c.GitData() },

	"ent":        func(c *Client) API { return c.Enterprise() },
	"enterprise": func(c *Client) API { return c.Enterprise() },
}

// API resolves a resource name or alias ("repos", "pull_request", "me", ...)
// to its wrapper. Unknown names fail with ErrorTypeInvalidArgument.
func (c *Client) API(name string) (API, error) {
	constructor, ok := apiNames[name]
	if !ok {
		return nil, invalidArgument("undefined api instance called: %q", name)
	}
	return constructor(c), nil
}

// APINames lists every accepted resource name and alias, sorted.
func APINames() []string {
	names := make([]string, 0, len(apiNames))
	for name := range apiNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Client) CurrentUser() *CurrentUserAPI       { return &CurrentUserAPI{client: c} }
func (c *Client) Users() *UsersAPI                   { return &UsersAPI{client: c} }
func (c *Client) Repos() *ReposAPI                   { return &ReposAPI{client: c} }
func (c *Client) Issues() *IssuesAPI                 { return &IssuesAPI{client: c} }
func (c *Client) PullRequests() *PullRequestsAPI     { return &PullRequestsAPI{client: c} }
func (c *Client) Gists() *GistsAPI                   { return &GistsAPI{client: c} }
func (c *Client) Organizations() *OrganizationsAPI   { return &OrganizationsAPI{client: c} }
func (c *Client) Teams() *TeamsAPI                   { return &TeamsAPI{client: c} }
func (c *Client) Search() *SearchAPI                 { return &SearchAPI{client: c} }
func (c *Client) Markdown() *MarkdownAPI             { return &MarkdownAPI{client: c} }
func (c *Client) Notifications() *NotificationsAPI   { return &NotificationsAPI{client: c} }
func (c *Client) RateLimits() *RateLimitAPI          { return &RateLimitAPI{client: c} }
func (c *Client) Meta() *MetaAPI                     { return &MetaAPI{client: c} }
func (c *Client) Authorizations() *AuthorizationsAPI { return &AuthorizationsAPI{client: c} }
func (c *Client) Deployments() *DeploymentsAPI       { return &DeploymentsAPI{client: c} }
func (c *Client) GitData() *GitDataAPI               { return &GitDataAPI{client: c} }
func (c *Client) Enterprise() *EnterpriseAPI         { return &EnterpriseAPI{client: c} }

// pathf formats a request path, escaping string arguments as path segments.
func pathf(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			escaped[i] = url.PathEscape(s)
			continue
		}
		escaped[i] = arg
	}
	return fmt.Sprintf(format, escaped...)
}
