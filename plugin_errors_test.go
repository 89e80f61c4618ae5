package github

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func throw(t *testing.T, path string, resp func(*http.Request) *http.Response) (*http.Response, *ClientError) {
	t.Helper()
	transport := &recordingTransport{respond: resp}
	chain := buildChain(transport, NewErrorThrowerPlugin(nil))

	out, err := chain.Do(mustRequest(t, http.MethodGet, "https://api.github.com"+path, nil))
	if err == nil {
		return out, nil
	}
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	return out, clientErr
}

func TestErrorThrowerPassesSuccess(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent, http.StatusNotModified} {
		resp, clientErr := throw(t, "/user", func(req *http.Request) *http.Response {
			return newResponse(req, status, "", nil)
		})

		assert.Nil(t, clientErr)
		assert.Equal(t, status, resp.StatusCode)
	}
}

func TestErrorThrowerStatusTypes(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		expected string
	}{
		{http.StatusBadRequest, `{"message":"Problems parsing JSON"}`, ErrorTypeBadRequest},
		{http.StatusUnauthorized, `{"message":"Bad credentials"}`, ErrorTypeUnauthorized},
		{http.StatusForbidden, `{"message":"Forbidden"}`, ErrorTypeForbidden},
		{http.StatusNotFound, `{"message":"Not Found"}`, ErrorTypeNotFound},
		{http.StatusConflict, "", ErrorTypeClient},
		{http.StatusUnprocessableEntity, `{"message":"Validation Failed"}`, ErrorTypeValidationFailed},
		{http.StatusInternalServerError, "oops", ErrorTypeServer},
		{http.StatusServiceUnavailable, "", ErrorTypeServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			resp, clientErr := throw(t, "/x", func(req *http.Request) *http.Response {
				return newResponse(req, tt.status, tt.body, http.Header{"X-Github-Request-Id": {"REQ-1"}})
			})

			require.NotNil(t, clientErr)
			assert.Equal(t, tt.expected, clientErr.Type)
			assert.Equal(t, tt.status, clientErr.StatusCode)
			assert.Equal(t, "REQ-1", clientErr.RequestID)
			assert.Same(t, resp, clientErr.Response)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(body), "body must stay readable")
		})
	}
}

func TestErrorThrowerMessages(t *testing.T) {
	_, clientErr := throw(t, "/x", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusNotFound, `{"message":"Not Found","documentation_url":"https://docs"}`, nil)
	})
	assert.Equal(t, "Not Found", clientErr.Message)

	_, clientErr = throw(t, "/x", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusBadGateway, "", nil)
	})
	assert.Equal(t, "Bad Gateway", clientErr.Message)
}

func TestErrorThrowerRateLimit(t *testing.T) {
	header := http.Header{}
	header.Set("X-RateLimit-Limit", "5000")
	header.Set("X-RateLimit-Remaining", "0")
	header.Set("X-RateLimit-Reset", "1700000000")

	_, clientErr := throw(t, "/repos/o/r", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusForbidden, `{"message":"API rate limit exceeded"}`, header.Clone())
	})

	require.NotNil(t, clientErr)
	assert.True(t, IsRateLimit(clientErr))
	assert.Equal(t, "You have reached GitHub hourly limit! Actual limit is: 5000", clientErr.Message)
	require.NotNil(t, clientErr.RateLimit)
	assert.Equal(t, 0, clientErr.RateLimit.Remaining)
	assert.Equal(t, int64(1700000000), clientErr.RateLimit.Reset.Unix())
}

func TestErrorThrowerRateLimitEndpointIsExempt(t *testing.T) {
	header := http.Header{}
	header.Set("X-RateLimit-Remaining", "0")

	_, clientErr := throw(t, "/api/v3/rate_limit", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusForbidden, `{"message":"Forbidden"}`, header.Clone())
	})

	require.NotNil(t, clientErr)
	assert.Equal(t, ErrorTypeForbidden, clientErr.Type)
}

func TestErrorThrowerTwoFactor(t *testing.T) {
	_, clientErr := throw(t, "/authorizations", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusUnauthorized, `{"message":"Must specify two-factor authentication OTP code."}`,
			http.Header{"X-Github-Otp": {"required; sms"}})
	})

	require.NotNil(t, clientErr)
	assert.True(t, errors.Is(clientErr, ErrTwoFactorRequired))
	assert.Equal(t, "sms", clientErr.TwoFactorType)
}

func TestErrorThrowerValidationFailed(t *testing.T) {
	body := `{
		"message": "Validation Failed",
		"errors": [
			{"resource": "Issue", "field": "title", "code": "missing_field"},
			{"resource": "Issue", "field": "milestone", "code": "missing", "value": 7},
			{"resource": "Label", "field": "name", "code": "already_exists"},
			{"resource": "Issue", "field": "state", "code": "invalid", "message": "must be open or closed"},
			{"resource": "Issue", "code": "custom", "message": "something else"}
		]
	}`

	_, clientErr := throw(t, "/repos/o/r/issues", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusUnprocessableEntity, body, nil)
	})

	require.NotNil(t, clientErr)
	assert.True(t, IsValidation(clientErr))
	assert.Len(t, clientErr.Errors, 5)
	assert.Equal(t, "Validation Failed: "+
		`Field "title" is missing, for resource "Issue", `+
		`The milestone 7 does not exist, for resource "Issue", `+
		`Field "name" already exists, for resource "Label", `+
		`Field "state" is invalid, for resource "Issue": "must be open or closed", `+
		`something else`,
		clientErr.Message)
}

func TestErrorThrowerWrapsTransportErrors(t *testing.T) {
	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	chain := buildChain(failing, NewErrorThrowerPlugin(nil))

	_, err := chain.Do(mustRequest(t, http.MethodGet, "https://api.github.com/", nil))

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrorTypeNetwork, clientErr.Type)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, IsTransient(err))
}

func TestErrorThrowerKeepsClientErrors(t *testing.T) {
	chain := buildChain(&recordingTransport{respond: func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusFound, "", http.Header{"Location": {req.URL.String()}})
	}}, NewErrorThrowerPlugin(nil), NewRedirectPlugin(1))

	_, err := chain.Do(mustRequest(t, http.MethodGet, "https://api.github.com/loop", nil))

	assert.ErrorIs(t, err, ErrRedirect)
}

func TestErrorThrowerKeepsLargeBodies(t *testing.T) {
	body := `{"message":"` + strings.Repeat("x", maxErrorBody) + `"}`
	_, clientErr := throw(t, "/repos/o/r", func(req *http.Request) *http.Response {
		return newResponse(req, http.StatusInternalServerError, body, nil)
	})
	require.NotNil(t, clientErr)

	data, err := io.ReadAll(clientErr.Response.Body)
	require.NoError(t, err)
	assert.Len(t, data, len(body))
	assert.True(t, bytes.HasSuffix(data, []byte(`"}`)))
	assert.NoError(t, clientErr.Response.Body.Close())
}
