package github

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is read for its payload.
const maxErrorBody = 1 << 20

// ErrorThrowerPlugin turns responses with a status in [400, 600] into a
// *ClientError. It should be installed outermost so that it sees the final
// status after redirects and cache revalidation. The returned error carries
// the response, whose body is still readable.
type ErrorThrowerPlugin struct {
	Logger Logger
}

// NewErrorThrowerPlugin creates the plugin; logger may be nil.
func NewErrorThrowerPlugin(logger Logger) *ErrorThrowerPlugin {
	return &ErrorThrowerPlugin{Logger: logger}
}

func (p *ErrorThrowerPlugin) Kind() PluginKind { return KindErrorThrower }

func (p *ErrorThrowerPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	resp, err := next.RoundTrip(req)
	if err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			return resp, err
		}
		return resp, &ClientError{
			Type:      ErrorTypeNetwork,
			Message:   "request failed",
			Cause:     err,
			Method:    req.Method,
			URL:       req.URL.String(),
			Timestamp: time.Now(),
		}
	}
	if resp.StatusCode < 400 || resp.StatusCode > 600 {
		return resp, nil
	}

	clientErr := classifyResponse(req, resp)
	if clientErr.Type == ErrorTypeRateLimit && p.Logger != nil {
		p.Logger.Warn("GitHub rate limit exceeded",
			"url", clientErr.URL,
			"limit", clientErr.RateLimit.Limit,
			"reset", clientErr.RateLimit.Reset)
	}
	return resp, clientErr
}

type errorPayload struct {
	Message          string       `json:"message"`
	Errors           []FieldError `json:"errors"`
	DocumentationURL string       `json:"documentation_url"`
}

func classifyResponse(req *http.Request, resp *http.Response) *ClientError {
	clientErr := &ClientError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		URL:        req.URL.String(),
		RequestID:  resp.Header.Get("X-GitHub-Request-Id"),
		Response:   resp,
		RateLimit:  parseRateLimit(resp.Header),
		Timestamp:  time.Now(),
	}

	// Requests to /rate_limit never count against the limit.
	exhausted := clientErr.RateLimit != nil && clientErr.RateLimit.Remaining < 1 &&
		!strings.HasSuffix(req.URL.Path, "/rate_limit")
	if exhausted || resp.StatusCode == http.StatusTooManyRequests {
		clientErr.Type = ErrorTypeRateLimit
		clientErr.Message = "You have reached GitHub hourly limit! Actual limit is: " + rateLimitValue(clientErr.RateLimit)
		if clientErr.RateLimit == nil {
			clientErr.RateLimit = &RateLimit{}
		}
		return clientErr
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if otp := resp.Header.Get("X-GitHub-OTP"); strings.HasPrefix(otp, "required") {
			clientErr.Type = ErrorTypeTwoFactorRequired
			clientErr.TwoFactorType = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(otp, "required"), ";"))
			clientErr.Message = "two factor authentication required"
			return clientErr
		}
	}

	body := readErrorBody(resp)
	var payload errorPayload
	hasPayload := json.Unmarshal(body, &payload) == nil && payload.Message != ""

	switch {
	case hasPayload && resp.StatusCode == http.StatusBadRequest:
		clientErr.Type = ErrorTypeBadRequest
		clientErr.Message = payload.Message
		return clientErr
	case hasPayload && resp.StatusCode == http.StatusUnprocessableEntity && len(payload.Errors) > 0:
		clientErr.Type = ErrorTypeValidationFailed
		clientErr.Errors = payload.Errors
		clientErr.Message = validationMessage(payload.Errors)
		return clientErr
	}

	clientErr.Type = typeForStatus(resp.StatusCode)
	switch {
	case hasPayload:
		clientErr.Message = payload.Message
	case len(body) > 0:
		clientErr.Message = string(body)
	default:
		clientErr.Message = http.StatusText(resp.StatusCode)
	}
	return clientErr
}

func typeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return ErrorTypeBadRequest
	case status == http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case status == http.StatusForbidden:
		return ErrorTypeForbidden
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status == http.StatusUnprocessableEntity:
		return ErrorTypeValidationFailed
	case status >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeClient
	}
}

func validationMessage(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Code {
		case "missing":
			parts = append(parts, fmt.Sprintf("The %s %v does not exist, for resource %q", fe.Field, fe.Value, fe.Resource))
		case "missing_field":
			parts = append(parts, fmt.Sprintf("Field %q is missing, for resource %q", fe.Field, fe.Resource))
		case "invalid":
			if fe.Message != "" {
				parts = append(parts, fmt.Sprintf("Field %q is invalid, for resource %q: %q", fe.Field, fe.Resource, fe.Message))
			} else {
				parts = append(parts, fmt.Sprintf("Field %q is invalid, for resource %q", fe.Field, fe.Resource))
			}
		case "already_exists":
			parts = append(parts, fmt.Sprintf("Field %q already exists, for resource %q", fe.Field, fe.Resource))
		default:
			parts = append(parts, fe.Message)
		}
	}
	return "Validation Failed: " + strings.Join(parts, ", ")
}

// readErrorBody reads up to maxErrorBody of the body and puts an equivalent
// reader back so the caller can still consume all of it from
// ClientError.Response.
func readErrorBody(resp *http.Response) []byte {
	if resp.Body == nil {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(body), resp.Body),
		Closer: resp.Body,
	}
	return bytes.TrimSpace(body)
}

func parseRateLimit(h http.Header) *RateLimit {
	remaining := h.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}
	rl := &RateLimit{}
	rl.Remaining, _ = strconv.Atoi(remaining)
	rl.Limit, _ = strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(reset, 0)
	}
	return rl
}

func rateLimitValue(rl *RateLimit) string {
	if rl == nil {
		return "unknown"
	}
	return strconv.Itoa(rl.Limit)
}
