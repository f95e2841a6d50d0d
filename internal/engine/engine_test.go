package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoequity/gei/internal/geocache"
	"github.com/geoequity/gei/internal/model"
)

type fakeResolver struct {
	coord   model.Coordinate
	display string
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(ctx context.Context, address string) (model.Coordinate, string, error) {
	f.calls++
	return f.coord, f.display, f.err
}

type fakeLocator struct {
	region *model.Region
	calls  int
}

func (f *fakeLocator) Locate(c model.Coordinate) *model.Region {
	f.calls++
	return f.region
}

type fakeSearcher struct {
	sites []model.SiteDistance
	calls int
}

func (f *fakeSearcher) WithinRadius(center model.Coordinate, radiusMiles float64) []model.SiteDistance {
	f.calls++
	return f.sites
}

type fakeJoiner struct {
	values map[string][]model.FeatureValue
}

func (f *fakeJoiner) TopFeatures(r *model.Region, domain string) []model.FeatureValue {
	return f.values[domain]
}

func overall(v float64) *float64 { return &v }

func newTestEngine(r *fakeResolver, l *fakeLocator, s *fakeSearcher, j *fakeJoiner, opts ...Option) *Engine {
	if j == nil {
		j = &fakeJoiner{}
	}
	return New(r, l, s, j, opts...)
}

func TestAnswerFullFlow(t *testing.T) {
	region := &model.Region{GEOID: "13121001100", Name: "Tract 11", Overall: overall(0.72)}
	sites := []model.SiteDistance{
		{Site: &model.HazardSite{ID: 1, HazardScore: 5}, Miles: 0.4},
		{Site: &model.HazardSite{ID: 2, HazardScore: 3}, Miles: 1.2},
	}
	joiner := &fakeJoiner{values: map[string][]model.FeatureValue{
		model.DomainHealth: {{FeatureRow: model.FeatureRow{Code: "asthma", Rank: 1}, Percentile: 88.1}},
	}}

	resolver := &fakeResolver{coord: model.Coordinate{Lat: 33.77, Lon: -84.39}, display: "123 Main St, Atlanta"}
	e := newTestEngine(resolver, &fakeLocator{region: region}, &fakeSearcher{sites: sites}, joiner)

	got, err := e.Answer(context.Background(), "123 Main St", 5)
	require.NoError(t, err)

	assert.NotEmpty(t, got.QueryID)
	assert.Equal(t, "123 Main St", got.Address)
	assert.Equal(t, "123 Main St, Atlanta", got.FormattedAddress)
	assert.Equal(t, 5.0, got.RadiusMiles)
	assert.Equal(t, 33.77, got.Coordinate.Lat)

	require.NotNil(t, got.Region)
	assert.Equal(t, "13121001100", got.Region.GEOID)
	require.NotNil(t, got.Region.Overall)
	assert.Equal(t, 0.72, *got.Region.Overall)

	assert.Len(t, got.Sites, 2)
	require.Contains(t, got.Features, model.DomainHealth)
	assert.Equal(t, "asthma", got.Features[model.DomainHealth][0].Code)
	assert.NotContains(t, got.Features, model.DomainEnvironmental, "domains with no values are omitted")
}

func TestAnswerOutsideAllRegions(t *testing.T) {
	searcher := &fakeSearcher{sites: []model.SiteDistance{
		{Site: &model.HazardSite{ID: 1, HazardScore: 2}, Miles: 3.3},
	}}
	resolver := &fakeResolver{coord: model.Coordinate{Lat: 20.0, Lon: -100.0}}
	e := newTestEngine(resolver, &fakeLocator{region: nil}, searcher, nil)

	got, err := e.Answer(context.Background(), "somewhere remote", 10)
	require.NoError(t, err)

	assert.Nil(t, got.Region)
	assert.Empty(t, got.Features)
	assert.Len(t, got.Sites, 1, "hazard search still runs without a region")
	assert.Equal(t, 1, searcher.calls)
}

func TestAnswerEmptySites(t *testing.T) {
	resolver := &fakeResolver{coord: model.Coordinate{Lat: 33.77, Lon: -84.39}}
	e := newTestEngine(resolver, &fakeLocator{}, &fakeSearcher{sites: nil}, nil)

	got, err := e.Answer(context.Background(), "123 Main St", 5)
	require.NoError(t, err)
	assert.NotNil(t, got.Sites, "sites is always present, even when empty")
	assert.Empty(t, got.Sites)
}

func TestAnswerValidation(t *testing.T) {
	tests := []struct {
		name    string
		address string
		radius  float64
		opts    []Option
		field   string
	}{
		{"empty address", "", 5, nil, "address"},
		{"blank address", "   ", 5, nil, "address"},
		{"negative radius", "123 Main St", -1, nil, "radius"},
		{"NaN radius", "123 Main St", math.NaN(), nil, "radius"},
		{"positive infinite radius", "123 Main St", math.Inf(1), nil, "radius"},
		{"negative infinite radius", "123 Main St", math.Inf(-1), nil, "radius"},
		{"radius above default max", "123 Main St", 25.01, nil, "radius"},
		{"radius above configured max", "123 Main St", 11, []Option{WithMaxRadius(10)}, "radius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{}
			locator := &fakeLocator{}
			searcher := &fakeSearcher{}
			e := newTestEngine(resolver, locator, searcher, nil, tt.opts...)

			_, err := e.Answer(context.Background(), tt.address, tt.radius)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, resolver.calls, "validation rejects before any lookup")
			assert.Zero(t, locator.calls)
			assert.Zero(t, searcher.calls)
		})
	}
}

func TestAnswerRadiusBoundsInclusive(t *testing.T) {
	resolver := &fakeResolver{coord: model.Coordinate{Lat: 33.77, Lon: -84.39}}
	e := newTestEngine(resolver, &fakeLocator{}, &fakeSearcher{}, nil)

	_, err := e.Answer(context.Background(), "123 Main St", 0)
	assert.NoError(t, err, "zero radius is valid")

	_, err = e.Answer(context.Background(), "123 Main St", 25)
	assert.NoError(t, err, "max radius is valid")
}

func TestAnswerNotFound(t *testing.T) {
	resolver := &fakeResolver{err: geocache.ErrNotFound}
	locator := &fakeLocator{}
	e := newTestEngine(resolver, locator, &fakeSearcher{}, nil)

	_, err := e.Answer(context.Background(), "no such place", 5)

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "no such place", nfErr.Address)
	assert.Zero(t, locator.calls, "no lookups after a failed resolve")
}

func TestAnswerUpstreamFailure(t *testing.T) {
	cause := errors.New("connection refused")
	resolver := &fakeResolver{err: cause}
	e := newTestEngine(resolver, &fakeLocator{}, &fakeSearcher{}, nil)

	_, err := e.Answer(context.Background(), "123 Main St", 5)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.ErrorIs(t, err, cause)

	var nfErr *NotFoundError
	assert.False(t, errors.As(err, &nfErr), "upstream failure is not a not-found")
}
