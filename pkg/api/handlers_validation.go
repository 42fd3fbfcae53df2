package api

import (
	"encoding/json"
	"net/http"

	"github.com/trustmesh/core/pkg/identity"
)

type validationRequestBody struct {
	Validator string `json:"validator_address"`
	AgentID   uint64 `json:"agent_id"`
	DataHash  string `json:"data_hash"`
	URI       string `json:"data_uri,omitempty"`
}

func (s *Server) handleRequestValidation(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	var req validationRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid JSON body")
		return
	}
	hash, err := identity.ParseHash(req.DataHash)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	created, err := s.validations.RequestValidation(r.Context(),
		identity.Address(req.Validator), identity.AgentID(req.AgentID), hash, req.URI)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type validationResponseBody struct {
	Score uint8 `json:"response"`
}

func (s *Server) handleValidationResponse(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	hash, err := identity.ParseHash(r.PathValue("hash"))
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	var req validationResponseBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	if err := s.validations.SubmitResponse(r.Context(), caller, hash, req.Score); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"responded": true})
}

func (s *Server) handleGetValidation(w http.ResponseWriter, r *http.Request) {
	hash, err := identity.ParseHash(r.PathValue("hash"))
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	req, err := s.validations.GetRequest(r.Context(), hash)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
