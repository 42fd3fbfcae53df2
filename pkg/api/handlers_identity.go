package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/trustmesh/core/pkg/identity"
)

type agentRequest struct {
	Domain string `json:"agent_domain"`
	Addr   string `json:"agent_address"`
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	id, err := s.identities.Register(r.Context(), req.Domain, identity.Address(req.Addr))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"agent_id": uint64(id)})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	agent, err := s.identities.Get(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	if err := s.identities.Update(r.Context(), caller, id, req.Domain, identity.Address(req.Addr)); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	agent, err := s.identities.Get(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleResolveAgent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		agent identity.Agent
		err   error
	)
	switch {
	case query.Get("domain") != "":
		agent, err = s.identities.ResolveByDomain(r.Context(), query.Get("domain"))
	case query.Get("address") != "":
		agent, err = s.identities.ResolveByAddress(r.Context(), identity.Address(query.Get("address")))
	default:
		WriteBadRequest(w, r, "resolve requires ?domain= or ?address=")
		return
	}
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleAgentCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.identities.Count()})
}

// pathAgentID parses the {id} path segment.
func pathAgentID(w http.ResponseWriter, r *http.Request) (identity.AgentID, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		WriteBadRequest(w, r, "invalid agent id "+strconv.Quote(raw))
		return 0, false
	}
	return identity.AgentID(id), true
}
