package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_Generate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"qwen2.5","response":"technical: 80","done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL+"/", "", server.Client())
	resp, err := client.Generate(context.Background(), "classify me")

	require.NoError(t, err)
	assert.Equal(t, "technical: 80", resp)
	assert.Equal(t, DefaultModel, client.Model())
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "classify me", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, DefaultTemperature, got.Options.Temperature)
	assert.Equal(t, DefaultTopP, got.Options.TopP)
}

func TestOllamaClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaClient(server.URL, "missing", server.Client()).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaClient_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(server.URL, "m", server.Client()).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestOllamaClient_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(server.URL, "m", server.Client()).Generate(context.Background(), "x")
	assert.Error(t, err)
}

func TestOllamaClient_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"misc: 1"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOllamaClient(server.URL, "m", server.Client()).Generate(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOllamaClient_Defaults(t *testing.T) {
	c := NewOllamaClient("", "", nil)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, http.DefaultClient, c.client)
}
