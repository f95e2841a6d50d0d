// Package engine orchestrates a query: validate input, resolve the
// address, locate the containing region, search hazard sites within the
// radius, and join the region's feature percentiles.
package engine

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoequity/gei/internal/geocache"
	"github.com/geoequity/gei/internal/model"
)

// DefaultMaxRadiusMiles bounds the query radius when the configuration
// does not override it.
const DefaultMaxRadiusMiles = 25.0

// Resolver turns an address into a coordinate. *geocache.Cache satisfies
// it.
type Resolver interface {
	Resolve(ctx context.Context, address string) (model.Coordinate, string, error)
}

// RegionLocator finds the region containing a point. *region.Index
// satisfies it.
type RegionLocator interface {
	Locate(c model.Coordinate) *model.Region
}

// HazardSearcher finds hazard sites within a radius of a point.
// *hazard.Index satisfies it.
type HazardSearcher interface {
	WithinRadius(center model.Coordinate, radiusMiles float64) []model.SiteDistance
}

// FeatureJoiner joins a region's percentiles against the ranked feature
// table of a domain. *feature.Catalog satisfies it.
type FeatureJoiner interface {
	TopFeatures(r *model.Region, domain string) []model.FeatureValue
}

// Engine answers queries against the loaded datasets. It holds no
// per-query state beyond what the geocode cache keeps; the indexes are
// read-only, so Answer is safe for concurrent use.
type Engine struct {
	resolver  Resolver
	regions   RegionLocator
	hazards   HazardSearcher
	features  FeatureJoiner
	maxRadius float64
	log       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRadius overrides the maximum accepted query radius in miles.
func WithMaxRadius(miles float64) Option {
	return func(e *Engine) {
		if miles > 0 {
			e.maxRadius = miles
		}
	}
}

// New creates an Engine over the given resolver and dataset indexes.
func New(resolver Resolver, regions RegionLocator, hazards HazardSearcher, features FeatureJoiner, opts ...Option) *Engine {
	e := &Engine{
		resolver:  resolver,
		regions:   regions,
		hazards:   hazards,
		features:  features,
		maxRadius: DefaultMaxRadiusMiles,
		log:       zap.L().With(zap.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer runs one query. Validation failures return *ValidationError
// before any lookup runs. An address the geocoder has no match for
// returns *NotFoundError; a geocoder that could not be reached returns
// *UpstreamError. The hazard search runs even when the point falls
// outside every region.
func (e *Engine) Answer(ctx context.Context, address string, radiusMiles float64) (*model.QueryResult, error) {
	if strings.TrimSpace(address) == "" {
		return nil, &ValidationError{Field: "address", Reason: "must not be empty"}
	}
	if math.IsNaN(radiusMiles) || math.IsInf(radiusMiles, 0) ||
		radiusMiles < 0 || radiusMiles > e.maxRadius {
		return nil, &ValidationError{
			Field:  "radius",
			Reason: "must be between 0 and " + formatMiles(e.maxRadius) + " miles",
		}
	}

	queryID := uuid.NewString()
	log := e.log.With(zap.String("query_id", queryID))

	coord, display, err := e.resolver.Resolve(ctx, address)
	if err != nil {
		if errors.Is(err, geocache.ErrNotFound) {
			log.Info("address not found", zap.String("address", address))
			return nil, &NotFoundError{Address: address}
		}
		log.Warn("geocoder failed", zap.String("address", address), zap.Error(err))
		return nil, &UpstreamError{Err: err}
	}

	region := e.regions.Locate(coord)
	sites := e.hazards.WithinRadius(coord, radiusMiles)
	if sites == nil {
		sites = []model.SiteDistance{}
	}

	features := make(map[string][]model.FeatureValue)
	if region != nil {
		for _, domain := range model.Domains {
			if vals := e.features.TopFeatures(region, domain); len(vals) > 0 {
				features[domain] = vals
			}
		}
	}

	geoid := ""
	if region != nil {
		geoid = region.GEOID
	}
	log.Info("query answered",
		zap.String("address", address),
		zap.Float64("radius_miles", radiusMiles),
		zap.String("geoid", geoid),
		zap.Int("sites", len(sites)),
	)

	return &model.QueryResult{
		QueryID:          queryID,
		Address:          address,
		FormattedAddress: display,
		RadiusMiles:      radiusMiles,
		Coordinate:       coord,
		Region:           region.Summary(),
		Sites:            sites,
		Features:         features,
	}, nil
}

func formatMiles(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
