package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/provider"
)

func TestBase_Do_SetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	base := provider.NewBase(provider.WithMinInterval(0))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	body, err := base.Do(context.Background(), artifact.KindSERP, req)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Contains(t, gotUA, "draftforge/")
}

func TestBase_Do_StatusErrorIncludesPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream quota exhausted", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	base := provider.NewBase(provider.WithMinInterval(0))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = base.Do(context.Background(), artifact.KindPAA, req)
	require.Error(t, err)

	perr, ok := provider.IsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, provider.ReasonTransport, perr.Reason)
	assert.Equal(t, artifact.KindPAA, perr.Kind)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "upstream quota exhausted")
}

func TestBase_MinIntervalPacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	interval := 30 * time.Millisecond
	base := provider.NewBase(provider.WithMinInterval(interval))

	start := time.Now()
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = base.Do(context.Background(), artifact.KindSERP, req)
		require.NoError(t, err)
	}

	// First call is immediate; the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 2*interval)
}

func TestBase_PacingRespectsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	base := provider.NewBase(provider.WithMinInterval(time.Hour))

	// Drain the initial token
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = base.Do(context.Background(), artifact.KindSERP, req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, err = http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = base.Do(ctx, artifact.KindSERP, req)
	require.Error(t, err)
}
