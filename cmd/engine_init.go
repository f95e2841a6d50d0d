package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geoequity/gei/internal/engine"
	"github.com/geoequity/gei/internal/feature"
	"github.com/geoequity/gei/internal/geocache"
	"github.com/geoequity/gei/internal/hazard"
	"github.com/geoequity/gei/internal/region"
	"github.com/geoequity/gei/internal/resilience"
	"github.com/geoequity/gei/pkg/geocode"
)

// queryEnv holds the loaded datasets, the geocode cache, and the engine
// needed by the query/serve/status commands.
type queryEnv struct {
	Regions  *region.Index
	Hazards  *hazard.Index
	Features *feature.Catalog
	Cache    *geocache.Cache
	Engine   *engine.Engine

	store *geocache.Store
}

// Close releases resources held by the environment.
func (qe *queryEnv) Close() {
	if qe.store != nil {
		_ = qe.store.Close()
	}
}

// initEngine loads the three datasets in parallel, wires the geocoder
// and cache, and builds the engine. Any dataset error is fatal; callers
// should defer env.Close().
func initEngine(ctx context.Context) (*queryEnv, error) {
	env := &queryEnv{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		ix, err := region.Load(cfg.Data.TractShapefile, cfg.Data.ScoresCSV)
		if err != nil {
			return err
		}
		env.Regions = ix
		return nil
	})
	g.Go(func() error {
		ix, err := hazard.Load(cfg.Data.SitesCSV)
		if err != nil {
			return err
		}
		env.Hazards = ix
		return nil
	})
	g.Go(func() error {
		cat, err := feature.Load(cfg.Data.FeatureTable)
		if err != nil {
			return err
		}
		env.Features = cat
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	client, err := initGeocoder()
	if err != nil {
		return nil, err
	}

	cacheOpts := []geocache.CacheOption{
		geocache.WithRetry(resilience.RetryConfig{MaxAttempts: cfg.Geocode.MaxAttempts}),
	}
	if cfg.Cache.Path != "" {
		store, err := geocache.OpenStore(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		env.store = store
		cacheOpts = append(cacheOpts, geocache.WithStore(store))
		zap.L().Info("persistent geocode cache enabled", zap.String("path", cfg.Cache.Path))
	}
	env.Cache = geocache.New(client, cacheOpts...)

	env.Engine = engine.New(env.Cache, env.Regions, env.Hazards, env.Features,
		engine.WithMaxRadius(cfg.Query.MaxRadiusMiles),
	)
	return env, nil
}

// initGeocoder builds the provider the configuration names.
func initGeocoder() (geocode.Client, error) {
	httpClient := &http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}

	switch cfg.Geocode.Provider {
	case "", "nominatim":
		opts := []geocode.Option{
			geocode.WithHTTPClient(httpClient),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
		}
		if cfg.Geocode.NominatimURL != "" {
			opts = append(opts, geocode.WithBaseURL(cfg.Geocode.NominatimURL))
		}
		if cfg.Geocode.RateLimit > 0 {
			opts = append(opts, geocode.WithRateLimit(cfg.Geocode.RateLimit))
		}
		return geocode.NewNominatim(opts...), nil
	case "census":
		return geocode.NewCensus(geocode.WithHTTPClient(httpClient)), nil
	default:
		return nil, eris.Errorf("unknown geocode provider %q", cfg.Geocode.Provider)
	}
}
