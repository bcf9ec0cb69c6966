package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/altozano-realty/intake-cli/internal/store"
	"github.com/altozano-realty/intake-cli/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "intake.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initGeocoder() geocode.Client {
	opts := []geocode.Option{}
	if cfg.Geocoder.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.Geocoder.BaseURL))
	}
	if cfg.Geocoder.UserAgent != "" {
		opts = append(opts, geocode.WithUserAgent(cfg.Geocoder.UserAgent))
	}
	if cfg.Geocoder.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithTimeout(time.Duration(cfg.Geocoder.TimeoutSecs)*time.Second))
	}
	if cfg.Geocoder.MinIntervalMS > 0 {
		opts = append(opts, geocode.WithMinInterval(time.Duration(cfg.Geocoder.MinIntervalMS)*time.Millisecond))
	}
	return geocode.NewClient(opts...)
}
