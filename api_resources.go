package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CurrentUserAPI covers the authenticated user (/user).
type CurrentUserAPI struct{ client *Client }

func (a *CurrentUserAPI) Name() string { return "current_user" }

// Show returns the authenticated user.
func (a *CurrentUserAPI) Show(ctx context.Context) (*http.Response, error) {
	return a.client.Get(ctx, "/user", nil, nil)
}

// Update patches the authenticated user's profile.
func (a *CurrentUserAPI) Update(ctx context.Context, params map[string]any) (*http.Response, error) {
	return a.client.Patch(ctx, "/user", params, nil)
}

// Repositories lists repositories the authenticated user can access.
func (a *CurrentUserAPI) Repositories(ctx context.Context, params url.Values) (*http.Response, error) {
	return a.client.Get(ctx, "/user/repos", params, nil)
}

// Emails lists the authenticated user's email addresses.
func (a *CurrentUserAPI) Emails(ctx context.Context) (*http.Response, error) {
	return a.client.Get(ctx, "/user/emails", nil, nil)
}

// Starring lists repositories starred by the authenticated user.
func (a *CurrentUserAPI) Starring(ctx context.Context, params url.Values) (*http.Response, error) {
	return a.client.Get(ctx, "/user/starred", params, nil)
}

// UsersAPI covers /users.
type UsersAPI struct{ client *Client }

func (a *UsersAPI) Name() string { return "users" }

func (a *UsersAPI) All(ctx context.Context, since int) (*http.Response, error) {
	params := url.Values{}
	if since > 0 {
		params.Set("since", strconv.Itoa(since))
	}
	return a.client.Get(ctx, "/users", params, nil)
}

func (a *UsersAPI) Show(ctx context.Context, username string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/users/%s", username), nil, nil)
}

func (a *UsersAPI) Repositories(ctx context.Context, username string, params url.Values) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/users/%s/repos", username), params, nil)
}

func (a *UsersAPI) Followers(ctx context.Context, username string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/users/%s/followers", username), nil, nil)
}

func (a *UsersAPI) Following(ctx context.Context, username string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/users/%s/following", username), nil, nil)
}

// ReposAPI covers /repos and repository creation.
type ReposAPI struct{ client *Client }

func (a *ReposAPI) Name() string { return "repos" }

func (a *ReposAPI) Show(ctx context.Context, owner, repo string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s", owner, repo), nil, nil)
}

// Create creates a repository for the authenticated user, or in
// organization when it is not empty.
func (a *ReposAPI) Create(ctx context.Context, organization string, params map[string]any) (*http.Response, error) {
	path := "/user/repos"
	if organization != "" {
		path = pathf("/orgs/%s/repos", organization)
	}
	return a.client.Post(ctx, path, params, nil)
}

func (a *ReposAPI) Update(ctx context.Context, owner, repo string, params map[string]any) (*http.Response, error) {
	return a.client.Patch(ctx, pathf("/repos/%s/%s", owner, repo), params, nil)
}

func (a *ReposAPI) Remove(ctx context.Context, owner, repo string) (*http.Response, error) {
	return a.client.Delete(ctx, pathf("/repos/%s/%s", owner, repo), nil, nil)
}

func (a *ReposAPI) Branches(ctx context.Context, owner, repo string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/branches", owner, repo), nil, nil)
}

func (a *ReposAPI) Contributors(ctx context.Context, owner, repo string, includeAnonymous bool) (*http.Response, error) {
	params := url.Values{}
	if includeAnonymous {
		params.Set("anon", "1")
	}
	return a.client.Get(ctx, pathf("/repos/%s/%s/contributors", owner, repo), params, nil)
}

func (a *ReposAPI) Languages(ctx context.Context, owner, repo string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/languages", owner, repo), nil, nil)
}

func (a *ReposAPI) Tags(ctx context.Context, owner, repo string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/tags", owner, repo), nil, nil)
}

// IssuesAPI covers repository issues.
type IssuesAPI struct{ client *Client }

func (a *IssuesAPI) Name() string { return "issues" }

func (a *IssuesAPI) All(ctx context.Context, owner, repo string, params url.Values) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/issues", owner, repo), params, nil)
}

func (a *IssuesAPI) Show(ctx context.Context, owner, repo string, number int) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/issues/%d", owner, repo, number), nil, nil)
}

// Create opens an issue; params must carry a title.
func (a *IssuesAPI) Create(ctx context.Context, owner, repo string, params map[string]any) (*http.Response, error) {
	if _, ok := params["title"]; !ok {
		return nil, invalidArgument("missing issue title")
	}
	return a.client.Post(ctx, pathf("/repos/%s/%s/issues", owner, repo), params, nil)
}

func (a *IssuesAPI) Update(ctx context.Context, owner, repo string, number int, params map[string]any) (*http.Response, error) {
	return a.client.Patch(ctx, pathf("/repos/%s/%s/issues/%d", owner, repo, number), params, nil)
}

func (a *IssuesAPI) Lock(ctx context.Context, owner, repo string, number int) (*http.Response, error) {
	return a.client.Put(ctx, pathf("/repos/%s/%s/issues/%d/lock", owner, repo, number), nil, nil)
}

func (a *IssuesAPI) Unlock(ctx context.Context, owner, repo string, number int) (*http.Response, error) {
	return a.client.Delete(ctx, pathf("/repos/%s/%s/issues/%d/lock", owner, repo, number), nil, nil)
}

// PullRequestsAPI covers repository pull requests.
type PullRequestsAPI struct{ client *Client }

func (a *PullRequestsAPI) Name() string { return "pull_requests" }

func (a *PullRequestsAPI) All(ctx context.Context, owner, repo string, params url.Values) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/pulls", owner, repo), params, nil)
}

func (a *PullRequestsAPI) Show(ctx context.Context, owner, repo string, number int) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/pulls/%d", owner, repo, number), nil, nil)
}

// Create opens a pull request. params need head and base plus either a
// title and body, or an issue number.
func (a *PullRequestsAPI) Create(ctx context.Context, owner, repo string, params map[string]any) (*http.Response, error) {
	_, hasIssue := params["issue"]
	_, hasTitle := params["title"]
	_, hasBody := params["body"]
	if !hasIssue && (!hasTitle || !hasBody) {
		return nil, invalidArgument("pull request needs an issue or a title and body")
	}
	return a.client.Post(ctx, pathf("/repos/%s/%s/pulls", owner, repo), params, nil)
}

func (a *PullRequestsAPI) Files(ctx context.Context, owner, repo string, number int) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/pulls/%d/files", owner, repo, number), nil, nil)
}

// Merge merges a pull request, using sha to guard against a moved head when
// it is not empty.
func (a *PullRequestsAPI) Merge(ctx context.Context, owner, repo string, number int, message, sha string) (*http.Response, error) {
	params := map[string]any{"commit_message": message}
	if sha != "" {
		params["sha"] = sha
	}
	return a.client.Put(ctx, pathf("/repos/%s/%s/pulls/%d/merge", owner, repo, number), params, nil)
}

// GistsAPI covers /gists.
type GistsAPI struct{ client *Client }

func (a *GistsAPI) Name() string { return "gists" }

// All lists gists. kind is "", "public" or "starred".
func (a *GistsAPI) All(ctx context.Context, kind string) (*http.Response, error) {
	switch kind {
	case "":
		return a.client.Get(ctx, "/gists", nil, nil)
	case "public", "starred":
		return a.client.Get(ctx, pathf("/gists/%s", kind), nil, nil)
	default:
		return nil, invalidArgument("unknown gist listing %q", kind)
	}
}

func (a *GistsAPI) Show(ctx context.Context, id string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/gists/%s", id), nil, nil)
}

func (a *GistsAPI) Create(ctx context.Context, params map[string]any) (*http.Response, error) {
	if _, ok := params["files"]; !ok {
		return nil, invalidArgument("missing gist files")
	}
	return a.client.Post(ctx, "/gists", params, nil)
}

func (a *GistsAPI) Remove(ctx context.Context, id string) (*http.Response, error) {
	return a.client.Delete(ctx, pathf("/gists/%s", id), nil, nil)
}

// OrganizationsAPI covers /orgs.
type OrganizationsAPI struct{ client *Client }

func (a *OrganizationsAPI) Name() string { return "organizations" }

func (a *OrganizationsAPI) Show(ctx context.Context, org string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/orgs/%s", org), nil, nil)
}

// Repositories lists an organization's repositories. kind filters by type
// ("all", "public", "private", ...); empty means all.
func (a *OrganizationsAPI) Repositories(ctx context.Context, org, kind string) (*http.Response, error) {
	params := url.Values{}
	if kind != "" {
		params.Set("type", kind)
	}
	return a.client.Get(ctx, pathf("/orgs/%s/repos", org), params, nil)
}

func (a *OrganizationsAPI) Members(ctx context.Context, org string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/orgs/%s/members", org), nil, nil)
}

// TeamsAPI covers organization teams.
type TeamsAPI struct{ client *Client }

func (a *TeamsAPI) Name() string { return "teams" }

func (a *TeamsAPI) All(ctx context.Context, org string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/orgs/%s/teams", org), nil, nil)
}

func (a *TeamsAPI) Show(ctx context.Context, id int) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/teams/%d", id), nil, nil)
}

func (a *TeamsAPI) AddMember(ctx context.Context, id int, username string) (*http.Response, error) {
	return a.client.Put(ctx, pathf("/teams/%d/memberships/%s", id, username), nil, nil)
}

func (a *TeamsAPI) RemoveMember(ctx context.Context, id int, username string) (*http.Response, error) {
	return a.client.Delete(ctx, pathf("/teams/%d/memberships/%s", id, username), nil, nil)
}

// SearchAPI covers /search.
type SearchAPI struct{ client *Client }

func (a *SearchAPI) Name() string { return "search" }

func (a *SearchAPI) Repositories(ctx context.Context, q, sort, order string) (*http.Response, error) {
	return a.search(ctx, "repositories", q, sort, order)
}

func (a *SearchAPI) Issues(ctx context.Context, q, sort, order string) (*http.Response, error) {
	return a.search(ctx, "issues", q, sort, order)
}

func (a *SearchAPI) Code(ctx context.Context, q, sort, order string) (*http.Response, error) {
	return a.search(ctx, "code", q, sort, order)
}

func (a *SearchAPI) Users(ctx context.Context, q, sort, order string) (*http.Response, error) {
	return a.search(ctx, "users", q, sort, order)
}

func (a *SearchAPI) search(ctx context.Context, kind, q, sort, order string) (*http.Response, error) {
	if q == "" {
		return nil, invalidArgument("empty search query")
	}
	params := url.Values{"q": {q}}
	if sort != "" {
		params.Set("sort", sort)
	}
	if order == "" {
		order = "desc"
	}
	params.Set("order", order)
	return a.client.Get(ctx, "/search/"+kind, params, nil)
}

// MarkdownAPI renders Markdown.
type MarkdownAPI struct{ client *Client }

func (a *MarkdownAPI) Name() string { return "markdown" }

// Render renders text. mode is "markdown" or "gfm"; repoContext ("owner/repo")
// is only used in gfm mode.
func (a *MarkdownAPI) Render(ctx context.Context, text, mode, repoContext string) (*http.Response, error) {
	if mode == "" {
		mode = "markdown"
	}
	if mode != "markdown" && mode != "gfm" {
		return nil, invalidArgument("unknown markdown mode %q", mode)
	}
	params := map[string]any{"text": text, "mode": mode}
	if mode == "gfm" && repoContext != "" {
		params["context"] = repoContext
	}
	return a.client.Post(ctx, "/markdown", params, nil)
}

// NotificationsAPI covers the authenticated user's notifications.
type NotificationsAPI struct{ client *Client }

func (a *NotificationsAPI) Name() string { return "notifications" }

func (a *NotificationsAPI) All(ctx context.Context, includingRead, participating bool) (*http.Response, error) {
	params := url.Values{
		"all":           {strconv.FormatBool(includingRead)},
		"participating": {strconv.FormatBool(participating)},
	}
	return a.client.Get(ctx, "/notifications", params, nil)
}

// MarkRead marks notifications read; an empty lastReadAt means now.
func (a *NotificationsAPI) MarkRead(ctx context.Context, lastReadAt string) (*http.Response, error) {
	params := map[string]any{}
	if lastReadAt != "" {
		params["last_read_at"] = lastReadAt
	}
	return a.client.Put(ctx, "/notifications", params, nil)
}

// RateLimitAPI reads /rate_limit. Requests to it never count against the
// limit and never raise rate limit errors.
type RateLimitAPI struct{ client *Client }

func (a *RateLimitAPI) Name() string { return "rate_limit" }

// Resources returns the limits for each resource family ("core", "search",
// ...).
func (a *RateLimitAPI) Resources(ctx context.Context) (map[string]RateLimit, error) {
	resp, err := a.client.Get(ctx, "/rate_limit", nil, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Resources map[string]struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"resources"`
	}
	if err := DecodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	limits := make(map[string]RateLimit, len(payload.Resources))
	for name, r := range payload.Resources {
		limits[name] = RateLimit{Limit: r.Limit, Remaining: r.Remaining, Reset: time.Unix(r.Reset, 0)}
	}
	return limits, nil
}

// MetaAPI reads /meta.
type MetaAPI struct{ client *Client }

func (a *MetaAPI) Name() string { return "meta" }

func (a *MetaAPI) Show(ctx context.Context) (*http.Response, error) {
	return a.client.Get(ctx, "/meta", nil, nil)
}

// AuthorizationsAPI covers OAuth authorizations.
type AuthorizationsAPI struct{ client *Client }

func (a *AuthorizationsAPI) Name() string { return "authorizations" }

func (a *AuthorizationsAPI) All(ctx context.Context) (*http.Response, error) {
	return a.client.Get(ctx, "/authorizations", nil, nil)
}

func (a *AuthorizationsAPI) Show(ctx context.Context, id int) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/authorizations/%d", id), nil, nil)
}

// Create requests a token. headers may carry X-GitHub-OTP for accounts with
// two-factor authentication.
func (a *AuthorizationsAPI) Create(ctx context.Context, params map[string]any, headers http.Header) (*http.Response, error) {
	if _, ok := params["note"]; !ok {
		return nil, invalidArgument("missing authorization note")
	}
	return a.client.Post(ctx, "/authorizations", params, headers)
}

func (a *AuthorizationsAPI) Remove(ctx context.Context, id int) (*http.Response, error) {
	return a.client.Delete(ctx, pathf("/authorizations/%d", id), nil, nil)
}

// DeploymentsAPI covers repository deployments.
type DeploymentsAPI struct{ client *Client }

func (a *DeploymentsAPI) Name() string { return "deployments" }

func (a *DeploymentsAPI) All(ctx context.Context, owner, repo string, params url.Values) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/deployments", owner, repo), params, nil)
}

func (a *DeploymentsAPI) Create(ctx context.Context, owner, repo string, params map[string]any) (*http.Response, error) {
	if _, ok := params["ref"]; !ok {
		return nil, invalidArgument("missing deployment ref")
	}
	return a.client.Post(ctx, pathf("/repos/%s/%s/deployments", owner, repo), params, nil)
}

func (a *DeploymentsAPI) Statuses(ctx context.Context, owner, repo string, id int) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/deployments/%d/statuses", owner, repo, id), nil, nil)
}

// CreateStatus records a deployment status; params must carry a state.
func (a *DeploymentsAPI) CreateStatus(ctx context.Context, owner, repo string, id int, params map[string]any) (*http.Response, error) {
	if _, ok := params["state"]; !ok {
		return nil, invalidArgument("missing deployment status state")
	}
	return a.client.Post(ctx, pathf("/repos/%s/%s/deployments/%d/statuses", owner, repo, id), params, nil)
}

// GitDataAPI covers the low level git objects of a repository.
type GitDataAPI struct{ client *Client }

func (a *GitDataAPI) Name() string { return "git_data" }

func (a *GitDataAPI) Blob(ctx context.Context, owner, repo, sha string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/git/blobs/%s", owner, repo, sha), nil, nil)
}

func (a *GitDataAPI) Commit(ctx context.Context, owner, repo, sha string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/git/commits/%s", owner, repo, sha), nil, nil)
}

// Reference reads a ref such as "heads/main". The ref keeps its slashes.
func (a *GitDataAPI) Reference(ctx context.Context, owner, repo, ref string) (*http.Response, error) {
	return a.client.Get(ctx, pathf("/repos/%s/%s/git/refs/", owner, repo)+ref, nil, nil)
}

func (a *GitDataAPI) Tree(ctx context.Context, owner, repo, sha string, recursive bool) (*http.Response, error) {
	params := url.Values{}
	if recursive {
		params.Set("recursive", "1")
	}
	return a.client.Get(ctx, pathf("/repos/%s/%s/git/trees/%s", owner, repo, sha), params, nil)
}

// EnterpriseAPI covers GitHub Enterprise administration endpoints. The
// client must have an enterprise URL set.
type EnterpriseAPI struct{ client *Client }

func (a *EnterpriseAPI) Name() string { return "enterprise" }

// Stats returns statistics of one kind ("all", "repos", "hooks", ...).
func (a *EnterpriseAPI) Stats(ctx context.Context, kind string) (*http.Response, error) {
	if kind == "" {
		kind = "all"
	}
	return a.client.Get(ctx, pathf("/enterprise/stats/%s", kind), nil, nil)
}

func (a *EnterpriseAPI) License(ctx context.Context) (*http.Response, error) {
	return a.client.Get(ctx, "/enterprise/settings/license", nil, nil)
}

func (a *EnterpriseAPI) SuspendUser(ctx context.Context, username string) (*http.Response, error) {
	return a.client.Put(ctx, pathf("/users/%s/suspended", username), nil, nil)
}

func (a *EnterpriseAPI) UnsuspendUser(ctx context.Context, username string) (*http.Response, error) {
	return a.client.Delete(ctx, pathf("/users/%s/suspended", username), nil, nil)
}
