// Package intake accepts unauthenticated lead and visit submissions, defends
// them against abuse, and normalizes them into durable records.
package intake

import (
	"strings"

	"github.com/altozano-realty/intake-cli/internal/model"
)

// LeadRequest is the raw public lead form payload. Website is the honeypot
// field; humans never see it.
type LeadRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Message       string `json:"message"`
	PropertyID    string `json:"property_id"`
	Source        string `json:"source"`
	OperationType string `json:"operation_type"`
	Neighborhood  string `json:"neighborhood"`
	Website       string `json:"website"`
}

// VisitRequest is the raw public visit form payload.
type VisitRequest struct {
	PropertyID    string `json:"property_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PreferredDate string `json:"preferred_date"`
	Message       string `json:"message"`
	Website       string `json:"website"`
}

// NormalizeLead validates a raw lead payload and shapes it into a Lead at the
// initial pipeline stage. Free-text fields pass through unmodified; optional
// fields keep an explicit empty value.
func NormalizeLead(req LeadRequest) (*model.Lead, error) {
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	return &model.Lead{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Message:       req.Message,
		PropertyID:    req.PropertyID,
		Source:        req.Source,
		OperationType: req.OperationType,
		Neighborhood:  req.Neighborhood,
		PipelineStage: model.StageNew,
	}, nil
}

// NormalizeVisit validates a raw visit payload and shapes it into a Visit
// with the given initial status (pending for public submissions, confirmed
// for operator-entered ones).
func NormalizeVisit(req VisitRequest, initial model.VisitStatus) (*model.Visit, error) {
	var missing []string
	if strings.TrimSpace(req.PropertyID) == "" {
		missing = append(missing, "property_id")
	}
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	return &model.Visit{
		PropertyID:    req.PropertyID,
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		PreferredDate: req.PreferredDate,
		Message:       req.Message,
		Status:        initial,
	}, nil
}
