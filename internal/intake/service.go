package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/altozano-realty/intake-cli/internal/model"
	"github.com/altozano-realty/intake-cli/internal/notify"
	"github.com/altozano-realty/intake-cli/internal/ratelimit"
	"github.com/altozano-realty/intake-cli/internal/store"
)

// genericPropertyLabel is used in notifications when the property title
// lookup fails; the dispatch still goes out.
const genericPropertyLabel = "a listed property"

// Dispatcher enqueues an event for background delivery.
type Dispatcher interface {
	Dispatch(ev notify.Event)
}

// Service orchestrates the public intake path: abuse gate, honeypot check,
// normalization, persistence, and (for visits) the notifier dispatch.
type Service struct {
	store      store.Store
	gate       *ratelimit.Gate
	dispatcher Dispatcher
}

// NewService creates an intake Service.
func NewService(st store.Store, gate *ratelimit.Gate, d Dispatcher) *Service {
	return &Service{store: st, gate: gate, dispatcher: d}
}

// SubmitLead processes a public lead submission from clientID.
// A honeypot match returns success without touching the store, so automated
// submitters learn nothing from the response.
func (s *Service) SubmitLead(ctx context.Context, req LeadRequest, clientID string) error {
	if allowed, retryAfter := s.gate.Admit(clientID); !allowed {
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if ratelimit.IsHoneypot(req.Website) {
		zap.L().Info("intake: honeypot lead discarded", zap.String("client", clientID))
		return nil
	}

	lead, err := NormalizeLead(req)
	if err != nil {
		return err
	}

	if _, err := s.store.CreateLead(ctx, *lead); err != nil {
		return eris.Wrap(err, "intake: create lead")
	}
	return nil
}

// SubmitVisit processes a public visit request from clientID. After a
// successful write it resolves the property's display title (best effort) and
// hands the event to the dispatcher; the caller never waits on delivery.
func (s *Service) SubmitVisit(ctx context.Context, req VisitRequest, clientID string) error {
	if allowed, retryAfter := s.gate.Admit(clientID); !allowed {
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if ratelimit.IsHoneypot(req.Website) {
		zap.L().Info("intake: honeypot visit discarded", zap.String("client", clientID))
		return nil
	}

	visit, err := NormalizeVisit(req, model.VisitPending)
	if err != nil {
		return err
	}

	created, err := s.store.CreateVisit(ctx, *visit)
	if err != nil {
		return eris.Wrap(err, "intake: create visit")
	}

	s.dispatchVisitEvent(ctx, created)
	return nil
}

// CreateOperatorVisit records a visit entered by an authenticated operator.
// It skips the abuse gate and honeypot and starts the visit confirmed.
func (s *Service) CreateOperatorVisit(ctx context.Context, req VisitRequest) (*model.Visit, error) {
	visit, err := NormalizeVisit(req, model.VisitConfirmed)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateVisit(ctx, *visit)
	if err != nil {
		return nil, eris.Wrap(err, "intake: create operator visit")
	}
	return created, nil
}

// dispatchVisitEvent builds and enqueues the visit notification. A failed
// title lookup falls back to a generic label rather than skipping the event.
func (s *Service) dispatchVisitEvent(ctx context.Context, visit *model.Visit) {
	title := genericPropertyLabel
	if prop, err := s.store.GetProperty(ctx, visit.PropertyID); err == nil && prop.Title != "" {
		title = prop.Title
	} else if err != nil {
		zap.L().Warn("intake: property title lookup failed",
			zap.String("property_id", visit.PropertyID),
			zap.Error(err),
		)
	}

	s.dispatcher.Dispatch(notify.Event{
		Type:    notify.EventVisitRequested,
		Message: fmt.Sprintf("New visit request from %s for %s", visit.Name, title),
		Details: map[string]any{
			"visit_id":       visit.ID,
			"property_id":    visit.PropertyID,
			"name":           visit.Name,
			"phone":          visit.Phone,
			"preferred_date": visit.PreferredDate,
		},
		Timestamp: time.Now().UTC(),
	})
}
