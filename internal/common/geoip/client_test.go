package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "wizkid-search/internal/common/http"
)

func TestLocate_FallsThroughToSecondEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a/8.8.8.8/json/":
			_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
		case "/b/8.8.8.8":
			_, _ = w.Write([]byte(`{"success":true,"latitude":37.38,"longitude":-122.08,"city":"Mountain View"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	l := NewLocator(httpclient.NewClient(2*time.Second, "test"), []string{
		server.URL + "/a/{ip}/json/",
		server.URL + "/b/{ip}",
	})
	loc, err := l.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, 37.38, loc.Lat)
	assert.Equal(t, -122.08, loc.Lon)
	assert.Equal(t, "Mountain View", loc.City)
	assert.Contains(t, server.URL, loc.Source)
}

func TestLocate_PrivateAddressUsesCallerLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/", r.URL.Path)
		_, _ = w.Write([]byte(`{"lat":1.5,"lon":2.5}`))
	}))
	defer server.Close()

	l := NewLocator(httpclient.NewClient(2*time.Second, "test"), []string{server.URL + "/{ip}/json/"})
	loc, err := l.Locate(context.Background(), "10.0.0.4")
	require.NoError(t, err)
	assert.Equal(t, 1.5, loc.Lat)
}

func TestLocate_NothingUsable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	l := NewLocator(httpclient.NewClient(time.Second, "test"), []string{server.URL + "/{ip}"})
	_, err := l.Locate(context.Background(), "8.8.8.8")
	require.ErrorIs(t, err, ErrNotFound)

	var nilLocator *Locator
	_, err = nilLocator.Locate(context.Background(), "8.8.8.8")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name, xff, remote, want string
	}{
		{"forwarded first hop", "203.0.113.7, 10.0.0.1", "10.0.0.1:443", "203.0.113.7"},
		{"remote with port", "", "198.51.100.2:5555", "198.51.100.2"},
		{"remote without port", "", "198.51.100.2", "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIP(tt.xff, tt.remote))
		})
	}
}
