// Package api — HTTP surface over the identity, reputation, and
// validation registries. Error responses use RFC 7807 Problem Details.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/trustmesh/core/pkg/fixedpoint"
	"github.com/trustmesh/core/pkg/identity"
	"github.com/trustmesh/core/pkg/reputation"
	"github.com/trustmesh/core/pkg/validation"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://trustmesh.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusBadRequest, "Bad Request", detail)
}

// WriteUnauthorized writes a 401 error response.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusUnauthorized, "Unauthorized", detail)
}

// WriteDomainError maps registry errors onto problem responses.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reputation.ErrAgentNotFound),
		errors.Is(err, validation.ErrAgentNotFound),
		errors.Is(err, identity.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "Agent Not Found", err.Error())
	case errors.Is(err, reputation.ErrInvalidIndex):
		WriteError(w, r, http.StatusNotFound, "Invalid Feedback Index", err.Error())
	case errors.Is(err, validation.ErrRequestNotFound):
		WriteError(w, r, http.StatusNotFound, "Validation Request Not Found", err.Error())
	case errors.Is(err, reputation.ErrUnauthorized),
		errors.Is(err, validation.ErrUnauthorized),
		errors.Is(err, identity.ErrUnauthorized):
		WriteError(w, r, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, reputation.ErrInvalidDecimals),
		errors.Is(err, validation.ErrInvalidScore),
		errors.Is(err, fixedpoint.ErrOverflow),
		errors.Is(err, fixedpoint.ErrDecimals):
		WriteBadRequest(w, r, err.Error())
	case errors.Is(err, identity.ErrDomainTaken),
		errors.Is(err, identity.ErrAddressTaken),
		errors.Is(err, validation.ErrDuplicateRequest),
		errors.Is(err, validation.ErrAlreadyResponded):
		WriteError(w, r, http.StatusConflict, "Conflict", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
