package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client, err := GetHTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.Jar)
}

func TestGetOAuthClient(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := GetOAuthClient(context.Background(), "test-token")
	require.NotNil(t, client)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer test-token", auth)
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
}

func TestPrintHTTPResponse_WithResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       http.NoBody,
	}
	// should not panic
	PrintHTTPResponse(resp)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/model.json"))
	assert.True(t, IsRemote(" HTTP://example.com/data.csv"))
	assert.False(t, IsRemote("models/model.json"))
	assert.False(t, IsRemote("postgres://localhost/db"))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.json":
			assert.Equal(t, clientAgent, r.Header.Get("User-Agent"))
			w.Write([]byte(`{"kind":"logistic"}`))
		case "/private.json":
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	dir := t.TempDir()

	t.Run("ok", func(t *testing.T) {
		p := filepath.Join(dir, "model.json")
		require.NoError(t, Download(ctx, srv.URL+"/model.json", p, ""))
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, `{"kind":"logistic"}`, string(b))
		assert.NoFileExists(t, p+".part")
	})

	t.Run("not found", func(t *testing.T) {
		p := filepath.Join(dir, "missing.json")
		err := Download(ctx, srv.URL+"/missing.json", p, "")
		assert.ErrorIs(t, err, ErrorURLNotFound)
		assert.NoFileExists(t, p)
	})

	t.Run("unauthorized", func(t *testing.T) {
		p := filepath.Join(dir, "private.json")
		err := Download(ctx, srv.URL+"/private.json", p, "")
		assert.Error(t, err)
		assert.NoFileExists(t, p)
	})

	t.Run("token", func(t *testing.T) {
		p := filepath.Join(dir, "private.json")
		require.NoError(t, Download(ctx, srv.URL+"/private.json", p, "secret"))
		assert.FileExists(t, p)
	})
}
