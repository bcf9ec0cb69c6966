package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altozano-realty/intake-cli/internal/model"
	"github.com/altozano-realty/intake-cli/internal/notify"
	"github.com/altozano-realty/intake-cli/internal/ratelimit"
	"github.com/altozano-realty/intake-cli/internal/store"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	store.Store // panic on anything not overridden

	leads      []model.Lead
	visits     []model.Visit
	properties map[string]model.Property

	createLeadErr  error
	createVisitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{properties: make(map[string]model.Property)}
}

func (f *fakeStore) CreateLead(_ context.Context, lead model.Lead) (*model.Lead, error) {
	if f.createLeadErr != nil {
		return nil, f.createLeadErr
	}
	lead.ID = "lead-1"
	f.leads = append(f.leads, lead)
	return &lead, nil
}

func (f *fakeStore) CreateVisit(_ context.Context, visit model.Visit) (*model.Visit, error) {
	if f.createVisitErr != nil {
		return nil, f.createVisitErr
	}
	visit.ID = "visit-1"
	f.visits = append(f.visits, visit)
	return &visit, nil
}

func (f *fakeStore) GetProperty(_ context.Context, id string) (*model.Property, error) {
	p, ok := f.properties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// fakeDispatcher records dispatched events.
type fakeDispatcher struct {
	events []notify.Event
}

func (f *fakeDispatcher) Dispatch(ev notify.Event) {
	f.events = append(f.events, ev)
}

func newTestService(st *fakeStore) (*Service, *fakeDispatcher) {
	d := &fakeDispatcher{}
	return NewService(st, ratelimit.NewGate(time.Minute, 5), d), d
}

func TestSubmitLead(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestService(st)

	err := svc.SubmitLead(context.Background(), LeadRequest{
		Name:   "Marta Suárez",
		Phone:  "351-555-0101",
		Source: "landing",
	}, "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, st.leads, 1)
	assert.Equal(t, model.StageNew, st.leads[0].PipelineStage)
}

func TestSubmitLead_RateLimited(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestService(st)

	req := LeadRequest{Name: "A", Phone: "1"}
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.SubmitLead(context.Background(), req, "10.0.0.1"))
	}

	err := svc.SubmitLead(context.Background(), req, "10.0.0.1")
	require.Error(t, err)

	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Len(t, st.leads, 5, "a rejected request must not touch the store")
}

func TestSubmitLead_HoneypotIsSilentSuccess(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestService(st)

	err := svc.SubmitLead(context.Background(), LeadRequest{
		Name:    "Bot",
		Phone:   "000",
		Website: "http://spam.example",
	}, "10.0.0.1")
	require.NoError(t, err, "honeypot matches must look like success")
	assert.Empty(t, st.leads, "honeypot matches must never create records")
}

func TestSubmitLead_ValidationShortCircuits(t *testing.T) {
	st := newFakeStore()
	svc, _ := newTestService(st)

	err := svc.SubmitLead(context.Background(), LeadRequest{Phone: "555"}, "10.0.0.1")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, st.leads)
}

func TestSubmitLead_StoreError(t *testing.T) {
	st := newFakeStore()
	st.createLeadErr = errors.New("connection refused")
	svc, _ := newTestService(st)

	err := svc.SubmitLead(context.Background(), LeadRequest{Name: "A", Phone: "1"}, "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create lead")
}

func TestSubmitVisit_DispatchesNotification(t *testing.T) {
	st := newFakeStore()
	st.properties["p1"] = model.Property{ID: "p1", Title: "Casa Güemes"}
	svc, d := newTestService(st)

	err := svc.SubmitVisit(context.Background(), VisitRequest{
		PropertyID:    "p1",
		Name:          "Julián Paz",
		Phone:         "351-555-0202",
		PreferredDate: "2025-07-01",
	}, "10.0.0.2")
	require.NoError(t, err)

	require.Len(t, st.visits, 1)
	assert.Equal(t, model.VisitPending, st.visits[0].Status)

	require.Len(t, d.events, 1)
	assert.Equal(t, notify.EventVisitRequested, d.events[0].Type)
	assert.Contains(t, d.events[0].Message, "Casa Güemes")
	assert.Equal(t, "visit-1", d.events[0].Details["visit_id"])
}

func TestSubmitVisit_TitleLookupFallsBack(t *testing.T) {
	st := newFakeStore() // no properties seeded
	svc, d := newTestService(st)

	err := svc.SubmitVisit(context.Background(), VisitRequest{
		PropertyID: "gone", Name: "J", Phone: "1",
	}, "10.0.0.2")
	require.NoError(t, err, "a failed title lookup must not fail the submission")

	require.Len(t, d.events, 1)
	assert.Contains(t, d.events[0].Message, genericPropertyLabel)
}

func TestSubmitVisit_HoneypotIsSilentSuccess(t *testing.T) {
	st := newFakeStore()
	svc, d := newTestService(st)

	err := svc.SubmitVisit(context.Background(), VisitRequest{
		PropertyID: "p1", Name: "Bot", Phone: "0", Website: "x",
	}, "10.0.0.2")
	require.NoError(t, err)
	assert.Empty(t, st.visits)
	assert.Empty(t, d.events, "discarded submissions must not notify anyone")
}

func TestCreateOperatorVisit_StartsConfirmed(t *testing.T) {
	st := newFakeStore()
	svc, d := newTestService(st)

	created, err := svc.CreateOperatorVisit(context.Background(), VisitRequest{
		PropertyID: "p1", Name: "J", Phone: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisitConfirmed, created.Status)
	assert.Empty(t, d.events, "operator entries skip the notifier")
}
