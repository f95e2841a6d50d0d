package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoequity/gei/internal/engine"
	"github.com/geoequity/gei/internal/geocache"
	"github.com/geoequity/gei/internal/model"
)

type stubResolver struct {
	coord model.Coordinate
	err   error
}

func (s *stubResolver) Resolve(ctx context.Context, address string) (model.Coordinate, string, error) {
	return s.coord, "", s.err
}

type stubLocator struct{}

func (stubLocator) Locate(model.Coordinate) *model.Region { return nil }

type stubSearcher struct{}

func (stubSearcher) WithinRadius(model.Coordinate, float64) []model.SiteDistance { return nil }

type stubJoiner struct{}

func (stubJoiner) TopFeatures(*model.Region, string) []model.FeatureValue { return nil }

func queryHandler(resolver *stubResolver) http.HandlerFunc {
	env := &queryEnv{
		Engine: engine.New(resolver, stubLocator{}, stubSearcher{}, stubJoiner{}),
	}
	return handleQuery(env)
}

func TestHandleQueryStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		resolver *stubResolver
		url      string
		want     int
	}{
		{
			"ok",
			&stubResolver{coord: model.Coordinate{Lat: 33.77, Lon: -84.39}},
			"/v1/query?address=123+Main+St&radius=5",
			http.StatusOK,
		},
		{
			"missing address",
			&stubResolver{},
			"/v1/query?radius=5",
			http.StatusBadRequest,
		},
		{
			"radius not a number",
			&stubResolver{},
			"/v1/query?address=x&radius=far",
			http.StatusBadRequest,
		},
		{
			"radius out of range",
			&stubResolver{},
			"/v1/query?address=x&radius=26",
			http.StatusBadRequest,
		},
		{
			"radius NaN",
			&stubResolver{},
			"/v1/query?address=x&radius=NaN",
			http.StatusBadRequest,
		},
		{
			"radius infinite",
			&stubResolver{},
			"/v1/query?address=x&radius=%2BInf",
			http.StatusBadRequest,
		},
		{
			"address not found",
			&stubResolver{err: geocache.ErrNotFound},
			"/v1/query?address=nowhere",
			http.StatusNotFound,
		},
		{
			"geocoder down",
			&stubResolver{err: errors.New("connection refused")},
			"/v1/query?address=x",
			http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			queryHandler(tt.resolver).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.want == http.StatusOK {
				var result model.QueryResult
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
				assert.NotEmpty(t, result.QueryID)
				assert.NotNil(t, result.Sites)
			} else {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestHandleQueryDefaultRadius(t *testing.T) {
	rec := httptest.NewRecorder()
	h := queryHandler(&stubResolver{coord: model.Coordinate{Lat: 33.77, Lon: -84.39}})
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/query?address=123+Main+St", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var result model.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 5.0, result.RadiusMiles)
}
