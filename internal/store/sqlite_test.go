package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altozano-realty/intake-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Leads ---

func TestSQLite_CreateLead_AssignsIDAndDefaults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLead(ctx, model.Lead{
		Name:          "Marta Suárez",
		Phone:         "351-555-0101",
		Source:        "landing",
		PipelineStage: model.StageNew,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	leads, err := st.ListLeads(ctx, model.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Marta Suárez", leads[0].Name)
	assert.Equal(t, model.StageNew, leads[0].PipelineStage)
	assert.Empty(t, leads[0].Email)
}

func TestSQLite_UpdateLeadStage(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLead(ctx, model.Lead{Name: "A", Phone: "1", PipelineStage: model.StageNew})
	require.NoError(t, err)

	require.NoError(t, st.UpdateLeadStage(ctx, created.ID, model.StageContacted))

	leads, err := st.ListLeads(ctx, model.LeadFilter{Stage: model.StageContacted})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	// Re-applying the same stage is a no-op success.
	require.NoError(t, st.UpdateLeadStage(ctx, created.ID, model.StageContacted))
}

func TestSQLite_UpdateLeadStage_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateLeadStage(context.Background(), "no-such-lead", model.StageWon)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListLeads_FilterAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.CreateLead(ctx, model.Lead{Name: "L", Phone: "1", Source: "portal", PipelineStage: model.StageNew})
		require.NoError(t, err)
	}
	_, err := st.CreateLead(ctx, model.Lead{Name: "M", Phone: "2", Source: "landing", PipelineStage: model.StageNew})
	require.NoError(t, err)

	leads, err := st.ListLeads(ctx, model.LeadFilter{Source: "portal"})
	require.NoError(t, err)
	assert.Len(t, leads, 3)

	leads, err = st.ListLeads(ctx, model.LeadFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

// --- Visits ---

func TestSQLite_VisitLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateVisit(ctx, model.Visit{
		PropertyID: "prop-1",
		Name:       "Julián Paz",
		Phone:      "351-555-0202",
		Status:     model.VisitPending,
	})
	require.NoError(t, err)

	status := model.VisitConfirmed
	notes := "prefers weekday mornings"
	require.NoError(t, st.UpdateVisit(ctx, created.ID, model.VisitPatch{
		Status:     &status,
		AgentNotes: &notes,
	}))

	visits, err := st.ListVisits(ctx, model.VisitFilter{Status: model.VisitConfirmed})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "prefers weekday mornings", visits[0].AgentNotes)
	assert.Nil(t, visits[0].InterestLevel)
}

func TestSQLite_UpdateVisit_PartialPatchKeepsOtherFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateVisit(ctx, model.Visit{
		PropertyID: "prop-1", Name: "N", Phone: "1", Status: model.VisitConfirmed,
	})
	require.NoError(t, err)

	level := 4
	require.NoError(t, st.UpdateVisit(ctx, created.ID, model.VisitPatch{
		InterestLevel: &level,
		FeedbackTags:  []string{"price", "location"},
	}))

	visits, err := st.ListVisits(ctx, model.VisitFilter{})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	// Status untouched by a patch that didn't carry it.
	assert.Equal(t, model.VisitConfirmed, visits[0].Status)
	require.NotNil(t, visits[0].InterestLevel)
	assert.Equal(t, 4, *visits[0].InterestLevel)
	assert.Equal(t, []string{"price", "location"}, visits[0].FeedbackTags)
}

func TestSQLite_UpdateVisit_StatusIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateVisit(ctx, model.Visit{
		PropertyID: "prop-1", Name: "N", Phone: "1", Status: model.VisitConfirmed,
	})
	require.NoError(t, err)

	done := model.VisitDone
	require.NoError(t, st.UpdateVisit(ctx, created.ID, model.VisitPatch{Status: &done}))
	require.NoError(t, st.UpdateVisit(ctx, created.ID, model.VisitPatch{Status: &done}))

	visits, err := st.ListVisits(ctx, model.VisitFilter{Status: model.VisitDone})
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestSQLite_UpdateVisit_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	done := model.VisitDone
	err := st.UpdateVisit(context.Background(), "missing", model.VisitPatch{Status: &done})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_DeleteVisit_CascadesPhotos(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateVisit(ctx, model.Visit{
		PropertyID: "prop-1", Name: "N", Phone: "1", Status: model.VisitPending,
	})
	require.NoError(t, err)

	_, err = st.db.ExecContext(ctx,
		`INSERT INTO visit_photos (id, visit_id, url) VALUES ('ph1', ?, 'https://cdn.example/p.jpg')`,
		created.ID,
	)
	require.NoError(t, err)

	require.NoError(t, st.DeleteVisit(ctx, created.ID))

	var photoCount int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT count(*) FROM visit_photos`).Scan(&photoCount))
	assert.Zero(t, photoCount)

	err = st.DeleteVisit(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Properties / geocode targets ---

func TestSQLite_GeocodeTargets(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertProperty(ctx, model.Property{ID: "p1", Title: "Casa Güemes", Neighborhood: "Güemes", City: "Córdoba"})
	require.NoError(t, err)
	_, err = st.InsertProperty(ctx, model.Property{ID: "p2", Title: "Depto Centro", Neighborhood: "Centro"})
	require.NoError(t, err)
	// No neighborhood: never a target.
	_, err = st.InsertProperty(ctx, model.Property{ID: "p3", Title: "Lote"})
	require.NoError(t, err)

	targets, err := st.ListGeocodeTargets(ctx, 25)
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	n, err := st.CountGeocodeTargets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Writing coordinates removes the property from the backlog.
	require.NoError(t, st.UpdatePropertyCoordinates(ctx, "p1", -31.4248, -64.1836))

	targets, err = st.ListGeocodeTargets(ctx, 25)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "p2", targets[0].ID)

	prop, err := st.GetProperty(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, prop.Latitude)
	assert.InDelta(t, -31.4248, *prop.Latitude, 0.0001)
}

func TestSQLite_GetProperty_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetProperty(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpdatePropertyCoordinates_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdatePropertyCoordinates(context.Background(), "missing", 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
