package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHunterProvider_Discover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domain-search", r.URL.Path)
		assert.Equal(t, "example.org", r.URL.Query().Get("domain"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"emails": [
					{"value": "ceo@example.org", "confidence": 92},
					{"value": "dev@example.org", "confidence": 47},
					{"value": "", "confidence": 10}
				]
			}
		}`))
	}))
	defer server.Close()

	p := NewHunterProvider("secret", true, nil)
	p.baseURL = server.URL

	candidates, err := p.Discover(context.Background(), "example.org")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "ceo@example.org", candidates[0].Email)
	assert.Equal(t, "hunter_io", candidates[0].Source)
	assert.InDelta(t, 0.92, candidates[0].Confidence, 1e-9)
	assert.InDelta(t, 0.47, candidates[1].Confidence, 1e-9)
}

func TestHunterProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHunterProvider("secret", true, nil)
	p.baseURL = server.URL

	_, err := p.Discover(context.Background(), "example.org")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHunterProvider_Availability(t *testing.T) {
	assert.True(t, NewHunterProvider("key", true, nil).Available())
	assert.False(t, NewHunterProvider("", true, nil).Available(), "no API key")
	assert.False(t, NewHunterProvider("key", false, nil).Available(), "disabled")
}
