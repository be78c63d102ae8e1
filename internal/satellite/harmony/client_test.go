package harmony_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/satellite/harmony"
)

var sanDiego = geo.Point{Lat: 32.7157, Lon: -117.1611}

func TestClient_Column(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer edl-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, harmony.CollectionID, q.Get("collectionId"))
		assert.Equal(t, harmony.Variable, q.Get("variable"))
		assert.Equal(t, []string{"lat(32.7157:32.7157)", "lon(-117.1611:-117.1611)"}, q["subset"])
		assert.Equal(t, "EPSG:4326", q.Get("outputCrs"))
		assert.Equal(t, "application/json", q.Get("format"))
		assert.Equal(t, "latest", q.Get("temporal"))

		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"data":4.2e15}}]}`))
	}))
	defer server.Close()

	client := harmony.NewClient(harmony.ClientConfig{
		Token:      "edl-token",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	value, ok, err := client.Column(context.Background(), sanDiego)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.2e15, value)
}

func TestClient_Column_NoFeatures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	client := harmony.NewClient(harmony.ClientConfig{Token: "t", BaseURL: server.URL, HTTPClient: http.DefaultClient})

	_, ok, err := client.Column(context.Background(), sanDiego)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Column_NullData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"properties":{"data":null}}]}`))
	}))
	defer server.Close()

	client := harmony.NewClient(harmony.ClientConfig{Token: "t", BaseURL: server.URL, HTTPClient: http.DefaultClient})

	_, ok, err := client.Column(context.Background(), sanDiego)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Column_NotConfigured(t *testing.T) {
	client := harmony.NewClient(harmony.ClientConfig{HTTPClient: http.DefaultClient})

	_, _, err := client.Column(context.Background(), sanDiego)

	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestClient_Column_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("EULA not accepted"))
	}))
	defer server.Close()

	client := harmony.NewClient(harmony.ClientConfig{Token: "t", BaseURL: server.URL, HTTPClient: http.DefaultClient})

	_, _, err := client.Column(context.Background(), sanDiego)

	perr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, perr.StatusCode)
	assert.Equal(t, "EULA not accepted", perr.Body)
}
