package handler

import (
	"errors"
	"time"

	"oact/internal/evidence"
	"oact/internal/registry"
	"oact/internal/signal"
	dErrors "oact/pkg/domain-errors"
)

// ViolationsResponse is the 422 body for a signal that failed validation.
type ViolationsResponse struct {
	Error            string             `json:"error"`
	ErrorDescription string             `json:"error_description"`
	Violations       []signal.Violation `json:"violations"`
}

func FromValidationError(verr *signal.ValidationError) *ViolationsResponse {
	return &ViolationsResponse{
		Error:            string(dErrors.CodeValidation),
		ErrorDescription: "signal failed validation",
		Violations:       verr.Violations,
	}
}

// BatchResponse is the body of POST /v1/assessments/batch.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// BatchResult holds either a bundle or the reason the signal was rejected.
type BatchResult struct {
	Index      int                `json:"index"`
	Bundle     *evidence.Bundle   `json:"bundle,omitempty"`
	Error      string             `json:"error,omitempty"`
	Message    string             `json:"error_description,omitempty"`
	Violations []signal.Violation `json:"violations,omitempty"`
}

func (r *BatchResult) setError(err error) {
	var verr *signal.ValidationError
	if errors.As(err, &verr) {
		r.Error = string(dErrors.CodeValidation)
		r.Message = "signal failed validation"
		r.Violations = verr.Violations
		return
	}
	code := dErrors.CodeOf(err)
	r.Error = string(code)
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		r.Message = de.Message
	}
}

// ListResponse is the body of GET /v1/assessments.
type ListResponse struct {
	Assessments []evidence.Summary `json:"assessments"`
	Count       int                `json:"count"`
}

func FromBundles(bundles []*evidence.Bundle) *ListResponse {
	out := make([]evidence.Summary, len(bundles))
	for i, b := range bundles {
		out[i] = b.Summary()
	}
	return &ListResponse{Assessments: out, Count: len(out)}
}

// NarrativeResponse is the body of GET /v1/assessments/{id}/narrative.
type NarrativeResponse struct {
	BundleID  string `json:"bundle_id"`
	Narrative string `json:"narrative"`
}

// RegistryResponse describes the registry snapshot in service.
type RegistryResponse struct {
	Version  string    `json:"version"`
	Entries  int       `json:"entries"`
	LoadedAt time.Time `json:"loaded_at"`
}

func FromSnapshot(snap *registry.Snapshot) *RegistryResponse {
	return &RegistryResponse{
		Version:  snap.Version(),
		Entries:  snap.Len(),
		LoadedAt: snap.LoadedAt(),
	}
}
