package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/dto"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient issues requests against an http.Handler as one caller.
type APIClient struct {
	Handler        http.Handler
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Automated      bool
	Headers        map[string]string
}

// NewAPIClient returns a reviewer client for the standard test organization.
func NewAPIClient(handler http.Handler) *APIClient {
	return &APIClient{
		Handler:        handler,
		OrganizationID: TestOrganizationID(),
		UserID:         TestUserID(),
	}
}

// AsPipeline returns a copy of the client that calls as the automated intake
// pipeline, with no user id.
func (c *APIClient) AsPipeline() *APIClient {
	cp := *c
	cp.UserID = uuid.Nil
	cp.Automated = true
	return &cp
}

// Do sends a request with the actor headers set. A nil body sends no body.
func (c *APIClient) Do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = ToJSONReader(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.OrganizationID != uuid.Nil {
		req.Header.Set(middleware.OrganizationHeader, c.OrganizationID.String())
	}
	if c.UserID != uuid.Nil {
		req.Header.Set(middleware.UserHeader, c.UserID.String())
	}
	if c.Automated {
		req.Header.Set(middleware.AutomatedHeader, "true")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)
	return w
}

// envelope mirrors dto.Response with the payload left undecoded
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse response: %s", w.Body.String())
	return env
}

// DecodeData asserts a success response with the given status and decodes
// its data into T.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()

	require.Equal(t, status, w.Code, "Unexpected status code: %s", w.Body.String())
	env := decode(t, w)
	require.True(t, env.Success, "Expected success to be true")

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), "Failed to parse response data")
	return out
}

// DecodeMeta returns the pagination meta of a success response.
func DecodeMeta(t *testing.T, w *httptest.ResponseRecorder) dto.Meta {
	t.Helper()

	env := decode(t, w)
	require.NotNil(t, env.Meta, "Expected pagination meta")
	return *env.Meta
}

// AssertErrorResponse asserts an error response with the given status and
// code and returns its error body.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, code string) dto.ErrorInfo {
	t.Helper()

	assert.Equal(t, status, w.Code, "Unexpected status code: %s", w.Body.String())
	env := decode(t, w)
	assert.False(t, env.Success, "Expected success to be false")
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, code, env.Error.Code, "Unexpected error code")
	return *env.Error
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
