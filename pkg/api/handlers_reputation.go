package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/trustmesh/core/pkg/identity"
	"github.com/trustmesh/core/pkg/reputation"
)

type giveFeedbackRequest struct {
	Value        string `json:"value"`
	Decimals     uint8  `json:"value_decimals"`
	Tag1         string `json:"tag1,omitempty"`
	Tag2         string `json:"tag2,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	FeedbackURI  string `json:"feedback_uri,omitempty"`
	FeedbackHash string `json:"feedback_hash,omitempty"`
}

type feedbackView struct {
	Client       string `json:"client_address,omitempty"`
	Index        uint64 `json:"feedback_index,omitempty"`
	Value        string `json:"value"`
	Decimals     uint8  `json:"value_decimals"`
	Tag1         string `json:"tag1,omitempty"`
	Tag2         string `json:"tag2,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	FeedbackURI  string `json:"feedback_uri,omitempty"`
	FeedbackHash string `json:"feedback_hash,omitempty"`
	Revoked      bool   `json:"is_revoked"`
}

func (s *Server) handleGiveFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	agentID, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	var req giveFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid JSON body")
		return
	}
	value, ok := new(big.Int).SetString(req.Value, 10)
	if !ok {
		WriteBadRequest(w, r, "value must be a base-10 integer string")
		return
	}
	hash, err := identity.ParseHash(req.FeedbackHash)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	index, err := s.reputations.GiveFeedback(r.Context(), caller, agentID, reputation.FeedbackInput{
		Value:        value,
		Decimals:     req.Decimals,
		Tag1:         req.Tag1,
		Tag2:         req.Tag2,
		Endpoint:     req.Endpoint,
		FeedbackURI:  req.FeedbackURI,
		FeedbackHash: hash,
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"feedback_index": index})
}

func (s *Server) handleRevokeFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	agentID, client, index, ok := pathFeedbackRef(w, r)
	if !ok {
		return
	}

	if err := s.reputations.RevokeFeedback(r.Context(), caller, agentID, client, index); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

type appendResponseRequest struct {
	ResponseURI  string `json:"response_uri,omitempty"`
	ResponseHash string `json:"response_hash,omitempty"`
}

func (s *Server) handleAppendResponse(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	agentID, client, index, ok := pathFeedbackRef(w, r)
	if !ok {
		return
	}
	var req appendResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid JSON body")
		return
	}
	hash, err := identity.ParseHash(req.ResponseHash)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	if err := s.reputations.AppendResponse(r.Context(), caller, agentID, client, index, req.ResponseURI, hash); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"appended": true})
}

func (s *Server) handleReadFeedback(w http.ResponseWriter, r *http.Request) {
	agentID, client, index, ok := pathFeedbackRef(w, r)
	if !ok {
		return
	}
	rec, err := s.reputations.ReadFeedback(r.Context(), agentID, client, index)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackView{
		Value:        rec.Value.String(),
		Decimals:     rec.Decimals,
		Tag1:         rec.Tag1,
		Tag2:         rec.Tag2,
		Endpoint:     rec.Endpoint,
		FeedbackURI:  rec.FeedbackURI,
		FeedbackHash: hashParam(rec.FeedbackHash),
		Revoked:      rec.Revoked,
	})
}

type summaryView struct {
	Count    uint64 `json:"count"`
	Value    string `json:"summary_value"`
	Decimals uint8  `json:"summary_value_decimals"`
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	summary, err := s.reputations.GetSummary(r.Context(), agentID,
		queryClients(query.Get("clients")), query.Get("tag1"), query.Get("tag2"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryView{
		Count:    summary.Count,
		Value:    summary.Value.String(),
		Decimals: summary.Decimals,
	})
}

func (s *Server) handleReadAllFeedback(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	var page reputation.Page
	if raw := query.Get("offset"); raw != "" {
		page.Offset, _ = strconv.Atoi(raw)
	}
	if raw := query.Get("limit"); raw != "" {
		page.Limit, _ = strconv.Atoi(raw)
	}

	cols, err := s.reputations.ReadAllFeedback(r.Context(), agentID,
		queryClients(query.Get("clients")), query.Get("tag1"), query.Get("tag2"),
		query.Get("include_revoked") == "true", page)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	rows := make([]feedbackView, cols.Len())
	for i := range rows {
		rows[i] = feedbackView{
			Client:   string(cols.Clients[i]),
			Index:    cols.Indexes[i],
			Value:    cols.Values[i].String(),
			Decimals: cols.Decimals[i],
			Tag1:     cols.Tag1s[i],
			Tag2:     cols.Tag2s[i],
			Revoked:  cols.Revoked[i],
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": rows, "count": len(rows)})
}

func (s *Server) handleGetClients(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	clients, err := s.reputations.GetClients(r.Context(), agentID)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (s *Server) handleGetLastIndex(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathAgentID(w, r)
	if !ok {
		return
	}
	client := identity.Address(r.PathValue("client"))
	last, err := s.reputations.GetLastIndex(r.Context(), agentID, client)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"last_index": last})
}

func (s *Server) handleResponseCount(w http.ResponseWriter, r *http.Request) {
	agentID, client, index, ok := pathFeedbackRef(w, r)
	if !ok {
		return
	}
	// Responses are stored keyed by responder: the responders filter is
	// required, and an empty one yields zero. Inherited protocol
	// behavior — see the reputation package.
	responders := queryClients(r.URL.Query().Get("responders"))
	count, err := s.reputations.GetResponseCount(r.Context(), agentID, client, index, responders)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": count})
}

type responseView struct {
	Responder    string `json:"responder"`
	ResponseURI  string `json:"response_uri,omitempty"`
	ResponseHash string `json:"response_hash,omitempty"`
}

func (s *Server) handleGetResponses(w http.ResponseWriter, r *http.Request) {
	agentID, client, index, ok := pathFeedbackRef(w, r)
	if !ok {
		return
	}
	responder := identity.Address(r.URL.Query().Get("responder"))
	if responder == "" {
		WriteBadRequest(w, r, "listing responses requires ?responder=")
		return
	}
	entries, err := s.reputations.GetResponses(r.Context(), agentID, client, index, responder)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	views := make([]responseView, len(entries))
	for i, e := range entries {
		views[i] = responseView{
			Responder:    string(e.Responder),
			ResponseURI:  e.ResponseURI,
			ResponseHash: hashParam(e.ResponseHash),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": views})
}

// pathFeedbackRef parses {id}, {client}, and {index} path segments.
func pathFeedbackRef(w http.ResponseWriter, r *http.Request) (identity.AgentID, identity.Address, uint64, bool) {
	agentID, ok := pathAgentID(w, r)
	if !ok {
		return 0, "", 0, false
	}
	client := identity.Address(r.PathValue("client"))
	raw := r.PathValue("index")
	index, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		WriteBadRequest(w, r, "invalid feedback index "+strconv.Quote(raw))
		return 0, "", 0, false
	}
	return agentID, client, index, true
}

// queryClients splits a comma-separated address list.
func queryClients(raw string) []identity.Address {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]identity.Address, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, identity.Address(p))
		}
	}
	return out
}

func hashParam(h identity.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.Hex()
}
