package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-tg/github-reader/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.GitHubConfig{
		Token:    config.Secret(token),
		Endpoint: srv.URL,
		Timeout:  config.Duration(5 * time.Second),
	}
	return NewClient(cfg, nil), srv
}

func TestClient_ExecuteSuccess(t *testing.T) {
	var gotAuth string
	var gotBody request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"repository":{"name":"hello-world"}}}`))
	}, "ghp_secret")

	data, err := client.Execute(context.Background(), "query { viewer { login } }", map[string]any{"owner": "octocat"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer ghp_secret", gotAuth)
	assert.Equal(t, "query { viewer { login } }", gotBody.Query)
	assert.Equal(t, "octocat", gotBody.Variables["owner"])

	repo, ok := data["repository"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello-world", repo["name"])
}

func TestClient_NoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{}}`))
	}, "")

	_, err := client.Execute(context.Background(), "query {}", nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantKind ErrorKind
		wantMsg  string
	}{
		{http.StatusUnauthorized, KindUnauthorized, "invalid or expired GitHub token"},
		{http.StatusForbidden, KindForbidden, "rate limit exceeded or forbidden resource"},
		{http.StatusNotFound, KindNotFound, "resource not found"},
		{http.StatusInternalServerError, KindHTTP, "API request failed: 500 Internal Server Error"},
		{http.StatusBadGateway, KindHTTP, "API request failed: 502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, "ghp_secret")

			_, err := client.Execute(context.Background(), "query {}", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestClient_GraphQLErrorsJoined(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"Could not resolve to a Repository"},{"message":""},{"message":"Field 'foo' doesn't exist"}]}`))
	}, "ghp_secret")

	_, err := client.Execute(context.Background(), "query {}", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindProtocol, apiErr.Kind)
	assert.Equal(t, "Could not resolve to a Repository; Unknown error; Field 'foo' doesn't exist", apiErr.Message)
}

func TestClient_MalformedResponseBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": not-json`))
	}, "ghp_secret")

	_, err := client.Execute(context.Background(), "query {}", nil)
	require.Error(t, err)
	assert.True(t, IsProtocol(err))
}

func TestClient_TimeoutIsConnectivity(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)

	cfg := &config.GitHubConfig{
		Endpoint: srv.URL,
		Timeout:  config.Duration(50 * time.Millisecond),
	}
	client := NewClient(cfg, nil)

	_, err := client.Execute(context.Background(), "query {}", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindConnectivity, apiErr.Kind)
	assert.Equal(t, "network error: request timed out", apiErr.Message)
	assert.NotContains(t, apiErr.Message, srv.URL, "connectivity errors must not leak the endpoint")
}

func TestClient_ConnectionRefusedIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	cfg := &config.GitHubConfig{
		Endpoint: endpoint,
		Timeout:  config.Duration(time.Second),
	}
	client := NewClient(cfg, nil)

	_, err := client.Execute(context.Background(), "query {}", nil)
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.NotContains(t, apiErr.Message, endpoint, "connectivity errors must not leak the endpoint")
}

func TestClient_NullDataReturnsEmptyMap(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	}, "ghp_secret")

	data, err := client.Execute(context.Background(), "query {}", nil)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}
