package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"diceledger/internal/eventlog"
	"diceledger/internal/ledger"
	"diceledger/internal/model"
)

// Request bodies use pointers so absent fields can be told apart from zero values.

type poolCreatedRequest struct {
	PoolID          *uint64    `json:"poolId"`
	StartTime       *int64     `json:"startTime"`
	EndTime         *int64     `json:"endTime"`
	DurationSeconds *int64     `json:"durationSeconds"`
	BaseAmountWei   *model.Wei `json:"baseAmountWei"`
	TxHash          *string    `json:"txHash"`
	BlockNumber     *uint64    `json:"blockNumber"`
}

type betRequest struct {
	PoolID      *uint64    `json:"poolId"`
	TxHash      *string    `json:"txHash"`
	User        *string    `json:"user"`
	AmountWei   *model.Wei `json:"amountWei"`
	TargetScore *int       `json:"targetScore"`
	BetIndex    *int64     `json:"betIndex"`
	BlockNumber *uint64    `json:"blockNumber"`
}

type poolResolvedRequest struct {
	PoolID             *uint64    `json:"poolId"`
	TxHash             *string    `json:"txHash"`
	Result             *int       `json:"result"`
	TotalAmountWei     *model.Wei `json:"totalAmountWei"`
	WinnerAddresses    *[]string  `json:"winnerAddresses"`
	PayoutPerWinnerWei *model.Wei `json:"payoutPerWinnerWei"`
	WinnerBetIndices   *[]int64   `json:"winnerBetIndices"`
	BlockNumber        *uint64    `json:"blockNumber"`
}

type recordResponse struct {
	OK      bool   `json:"ok"`
	Seq     int64  `json:"seq"`
	Summary string `json:"summary"`
}

func (s *Server) handlePoolCreated(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	var req poolCreatedRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := firstMissing(
		field{"poolId", req.PoolID == nil},
		field{"startTime", req.StartTime == nil},
		field{"endTime", req.EndTime == nil},
		field{"durationSeconds", req.DurationSeconds == nil},
		field{"baseAmountWei", req.BaseAmountWei == nil},
	); err != nil {
		s.fail(w, r, err)
		return
	}

	in := eventlog.PoolCreatedInput{
		PoolID:          *req.PoolID,
		StartTime:       *req.StartTime,
		EndTime:         *req.EndTime,
		DurationSeconds: *req.DurationSeconds,
		BaseAmountWei:   *req.BaseAmountWei,
		BlockNumber:     req.BlockNumber,
	}
	if req.TxHash != nil {
		in.TxHash = *req.TxHash
	}

	res, err := s.ledger.RecordPoolCreated(r.Context(), in)
	s.respondRecord(w, r, res, err)
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	var req betRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := firstMissing(
		field{"poolId", req.PoolID == nil},
		field{"txHash", req.TxHash == nil},
		field{"user", req.User == nil},
		field{"amountWei", req.AmountWei == nil},
		field{"targetScore", req.TargetScore == nil},
		field{"betIndex", req.BetIndex == nil},
	); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.ledger.RecordBet(r.Context(), eventlog.BetInput{
		PoolID:      *req.PoolID,
		TxHash:      *req.TxHash,
		User:        *req.User,
		AmountWei:   *req.AmountWei,
		TargetScore: *req.TargetScore,
		BetIndex:    *req.BetIndex,
		BlockNumber: req.BlockNumber,
	})
	s.respondRecord(w, r, res, err)
}

func (s *Server) handlePoolResolved(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	var req poolResolvedRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := firstMissing(
		field{"poolId", req.PoolID == nil},
		field{"txHash", req.TxHash == nil},
		field{"result", req.Result == nil},
		field{"totalAmountWei", req.TotalAmountWei == nil},
		field{"winnerAddresses", req.WinnerAddresses == nil},
		field{"payoutPerWinnerWei", req.PayoutPerWinnerWei == nil},
		field{"winnerBetIndices", req.WinnerBetIndices == nil},
	); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.ledger.RecordPoolResolved(r.Context(), eventlog.PoolResolvedInput{
		PoolID:             *req.PoolID,
		TxHash:             *req.TxHash,
		Result:             *req.Result,
		TotalAmountWei:     *req.TotalAmountWei,
		WinnerAddresses:    *req.WinnerAddresses,
		PayoutPerWinnerWei: *req.PayoutPerWinnerWei,
		WinnerBetIndices:   *req.WinnerBetIndices,
		BlockNumber:        req.BlockNumber,
	})
	s.respondRecord(w, r, res, err)
}

func (s *Server) respondRecord(w http.ResponseWriter, r *http.Request, res ledger.RecordResult, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary := string(res.Outcome)
	if res.Drift != nil {
		summary = "drift"
	}
	writeJSON(w, http.StatusOK, recordResponse{OK: true, Seq: res.Event.Seq, Summary: summary})
}

type field struct {
	name    string
	missing bool
}

func firstMissing(fields ...field) error {
	for _, f := range fields {
		if f.missing {
			return model.Invalid(f.name, "is required")
		}
	}
	return nil
}

// decodeBody decodes a single JSON object. Malformed JSON and wrong types are validation errors.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return model.Invalid(typeErr.Field, fmt.Sprintf("must be %s", typeErr.Type))
		case errors.As(err, &maxErr):
			return model.Invalid("body", "too large")
		case errors.Is(err, io.EOF):
			return model.Invalid("body", "is required")
		default:
			return model.Invalid("body", err.Error())
		}
	}
	if dec.More() {
		return model.Invalid("body", "must contain a single JSON object")
	}
	return nil
}
