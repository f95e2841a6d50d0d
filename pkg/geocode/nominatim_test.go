package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoequity/gei/internal/resilience"
)

func newNominatimServer(t *testing.T, status int, body string) Client {
	t.Helper()
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		if gotUA != "" {
			assert.Equal(t, "gei-test/1.0", gotUA)
		}
	})

	return NewNominatim(
		WithBaseURL(srv.URL),
		WithUserAgent("gei-test/1.0"),
		WithRateLimit(1000),
	)
}

func TestNominatimGeocode(t *testing.T) {
	client := newNominatimServer(t, http.StatusOK,
		`[{"lat":"33.7489954","lon":"-84.3879824","display_name":"Atlanta, Fulton County, Georgia"}]`)

	got, err := client.Geocode(context.Background(), "Atlanta, GA")
	require.NoError(t, err)
	assert.True(t, got.Matched)
	assert.InDelta(t, 33.7489954, got.Latitude, 1e-9)
	assert.InDelta(t, -84.3879824, got.Longitude, 1e-9)
	assert.Equal(t, "Atlanta, Fulton County, Georgia", got.DisplayName)
	assert.Equal(t, "nominatim", got.Source)
}

func TestNominatimNoMatch(t *testing.T) {
	client := newNominatimServer(t, http.StatusOK, `[]`)

	got, err := client.Geocode(context.Background(), "asdfghjkl")
	require.NoError(t, err)
	assert.False(t, got.Matched)
}

func TestNominatimServerError(t *testing.T) {
	client := newNominatimServer(t, http.StatusServiceUnavailable, "")

	_, err := client.Geocode(context.Background(), "Atlanta, GA")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "503 is retryable")
}

func TestNominatimClientError(t *testing.T) {
	client := newNominatimServer(t, http.StatusForbidden, "")

	_, err := client.Geocode(context.Background(), "Atlanta, GA")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "403 is not retryable")
}

func TestNominatimBadCoordinates(t *testing.T) {
	client := newNominatimServer(t, http.StatusOK,
		`[{"lat":"not-a-number","lon":"-84.0","display_name":"x"}]`)

	_, err := client.Geocode(context.Background(), "Atlanta, GA")
	require.Error(t, err)
}
