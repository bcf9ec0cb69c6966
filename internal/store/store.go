// Package store persists leads, visits, and property records behind a single
// interface with Postgres and SQLite drivers.
package store

import (
	"context"
	"errors"

	"github.com/altozano-realty/intake-cli/internal/model"
)

// ErrNotFound indicates the requested record does not exist. Drivers wrap it
// so callers can map it to a 404 with errors.Is.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence interface for the intake subsystem.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	UpdateLeadStage(ctx context.Context, leadID string, stage model.PipelineStage) error
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)

	// Visits
	CreateVisit(ctx context.Context, visit model.Visit) (*model.Visit, error)
	UpdateVisit(ctx context.Context, visitID string, patch model.VisitPatch) error
	DeleteVisit(ctx context.Context, visitID string) error
	ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error)

	// Properties
	GetProperty(ctx context.Context, propertyID string) (*model.Property, error)
	ListGeocodeTargets(ctx context.Context, limit int) ([]model.GeocodeTarget, error)
	CountGeocodeTargets(ctx context.Context) (int, error)
	UpdatePropertyCoordinates(ctx context.Context, propertyID string, lat, lon float64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
