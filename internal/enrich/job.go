// Package enrich implements the on-demand geocode backfill job: it resolves
// coordinates for properties that have a neighborhood but no location yet.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/altozano-realty/intake-cli/internal/config"
	"github.com/altozano-realty/intake-cli/internal/model"
	"github.com/altozano-realty/intake-cli/pkg/geocode"
)

// Store is the slice of the persistence layer the job needs.
type Store interface {
	ListGeocodeTargets(ctx context.Context, limit int) ([]model.GeocodeTarget, error)
	CountGeocodeTargets(ctx context.Context) (int, error)
	UpdatePropertyCoordinates(ctx context.Context, propertyID string, lat, lon float64) error
}

// Summary reports the outcome of one job run. Remaining is an estimate; new
// eligible properties may appear while the batch is in flight.
type Summary struct {
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// Job runs geocode enrichment over a bounded batch of targets. Lookups are
// strictly sequential: the upstream service enforces a one-request-per-second
// ceiling and exceeding it risks the calling identity being blocked, so the
// client's throttle must never be fanned out around.
type Job struct {
	store       Store
	client      geocode.Client
	batchSize   int
	callTimeout time.Duration
	defaultCity string
	region      string
	country     string
}

// NewJob creates an enrichment Job from config.
func NewJob(st Store, client geocode.Client, cfg config.GeocoderConfig) *Job {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 25
	}
	callTimeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if callTimeout <= 0 {
		callTimeout = 8 * time.Second
	}
	return &Job{
		store:       st,
		client:      client,
		batchSize:   batchSize,
		callTimeout: callTimeout,
		defaultCity: cfg.DefaultCity,
		region:      cfg.Region,
		country:     cfg.Country,
	}
}

// Run processes one batch. A failed lookup never aborts the batch; the
// target stays eligible and the next invocation is the retry mechanism.
// Partial progress always beats none for a human-triggered maintenance
// action, so Run returns a summary rather than an error once the batch has
// been selected.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	log := zap.L().With(zap.String("component", "enrich.job"))

	targets, err := j.store.ListGeocodeTargets(ctx, j.batchSize)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list targets")
	}

	summary := &Summary{}
	if len(targets) == 0 {
		log.Info("no geocode targets")
		return summary, nil
	}

	log.Info("starting geocode enrichment", zap.Int("targets", len(targets)))
	start := time.Now()

	for _, target := range targets {
		select {
		case <-ctx.Done():
			log.Warn("enrichment interrupted", zap.Int("resolved", summary.Resolved))
			return j.finish(ctx, summary, start), nil
		default:
		}

		if j.resolveTarget(ctx, log, target) {
			summary.Resolved++
		} else {
			summary.Failed++
		}
	}

	return j.finish(ctx, summary, start), nil
}

// resolveTarget performs one bounded lookup and writes the result back.
func (j *Job) resolveTarget(ctx context.Context, log *zap.Logger, target model.GeocodeTarget) bool {
	city := target.City
	if city == "" {
		city = j.defaultCity
	}

	callCtx, cancel := context.WithTimeout(ctx, j.callTimeout)
	result, err := j.client.Geocode(callCtx, geocode.Query{
		Neighborhood: target.Neighborhood,
		City:         city,
		Region:       j.region,
		Country:      j.country,
	})
	cancel()

	if err != nil {
		log.Warn("geocode lookup failed",
			zap.String("property_id", target.ID),
			zap.String("neighborhood", target.Neighborhood),
			zap.Error(err),
		)
		return false
	}
	if !result.Matched {
		log.Debug("geocode lookup unmatched",
			zap.String("property_id", target.ID),
			zap.String("neighborhood", target.Neighborhood),
		)
		return false
	}

	if err := j.store.UpdatePropertyCoordinates(ctx, target.ID, result.Latitude, result.Longitude); err != nil {
		log.Warn("failed to write coordinates",
			zap.String("property_id", target.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// finish fills in the backlog estimate and logs the run outcome.
func (j *Job) finish(ctx context.Context, summary *Summary, start time.Time) *Summary {
	remaining, err := j.store.CountGeocodeTargets(ctx)
	if err != nil {
		zap.L().Warn("enrich: backlog count failed", zap.Error(err))
	} else {
		summary.Remaining = remaining
	}

	zap.L().Info("geocode enrichment complete",
		zap.Int("resolved", summary.Resolved),
		zap.Int("failed", summary.Failed),
		zap.Int("remaining", summary.Remaining),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary
}
