package server

import (
	"net/http"

	"diceledger/internal/model"
)

type betsResponse struct {
	Bets []model.Event `json:"bets"`
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

type latestResponse struct {
	PoolID *uint64 `json:"poolId"`
}

// GET /pools/{poolId}/bets
func (s *Server) handlePoolBets(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	poolID, err := poolIDParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bets, err := s.ledger.GetBetsForPool(r.Context(), poolID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, betsResponse{Bets: nonNil(bets)})
}

// GET /pools/{poolId}/events
func (s *Server) handlePoolEvents(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	poolID, err := poolIDParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.ledger.GetPoolEvents(r.Context(), poolID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

// GET /pools/{poolId}/summary
func (s *Server) handlePoolSummary(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	poolID, err := poolIDParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.ledger.GetPoolSummary(r.Context(), poolID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /pools/latest
func (s *Server) handleLatestPool(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	poolID, ok, err := s.ledger.GetLatestPoolID(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := latestResponse{}
	if ok {
		resp.PoolID = &poolID
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /users/{address}/bets
func (s *Server) handleUserBets(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	bets, err := s.ledger.GetBetsForUser(r.Context(), r.PathValue("address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, betsResponse{Bets: nonNil(bets)})
}

func nonNil(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}
