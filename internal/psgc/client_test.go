package psgc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 2*time.Second, nil, 0, zap.NewNop())
}

func TestClientRegions(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/regions/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"code":"130000000","name":"NCR"},{"code":"040000000","name":"CALABARZON"}]`))
	})

	regions, err := newTestClient(server.URL).Regions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, RegionNCR, regions[0].Code)
	assert.Equal(t, "CALABARZON", regions[1].Name)
}

func TestClientCitiesByProvince(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/provinces/042100000/cities-municipalities/", r.URL.Path)
		_, _ = w.Write([]byte(`[{"code":"042116000","name":"City of Trece Martires"}]`))
	})

	cities, err := newTestClient(server.URL).CitiesByProvince(context.Background(), "042100000")
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "City of Trece Martires", cities[0].Name)
}

func TestClientCityCarriesZip(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cities-municipalities/042116000", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"042116000","name":"City of Trece Martires","zipCode":"4109"}`))
	})

	city, err := newTestClient(server.URL).City(context.Background(), "042116000")
	require.NoError(t, err)
	assert.Equal(t, "4109", city.ZipCode)
}

func TestClientUnexpectedStatus(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := newTestClient(server.URL).Regions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestClientMalformedBody(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	})

	_, err := newTestClient(server.URL).Barangays(context.Background(), "042116000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode psgc list")
}
