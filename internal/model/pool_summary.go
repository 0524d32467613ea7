package model

import (
	"fmt"
	"time"
)

// PoolSummary is the mutable per-pool rollup derived from the event log.
type PoolSummary struct {
	PoolID          uint64    `json:"poolId"`
	StartTime       int64     `json:"startTime"`
	EndTime         int64     `json:"endTime"`
	DurationSeconds int64     `json:"durationSeconds"`
	BaseAmountWei   Wei       `json:"baseAmountWei"`
	TotalAmountWei  Wei       `json:"totalAmountWei"`
	TotalBets       int64     `json:"totalBets"`
	Ended           bool      `json:"ended"`
	Result          *int      `json:"result,omitempty"`
	ChainID         uint64    `json:"chainId"`
	ContractAddress string    `json:"contractAddress"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewPoolSummary seeds an open summary from a pool_created event.
func NewPoolSummary(ev Event, now time.Time) (PoolSummary, error) {
	if ev.Kind != KindPoolCreated || ev.PoolCreated == nil {
		return PoolSummary{}, fmt.Errorf("summary requires %s event, got %s", KindPoolCreated, ev.Kind)
	}
	return PoolSummary{
		PoolID:          ev.PoolID,
		StartTime:       ev.StartTime,
		EndTime:         ev.EndTime,
		DurationSeconds: ev.DurationSeconds,
		BaseAmountWei:   ev.BaseAmountWei,
		TotalAmountWei:  Wei{},
		TotalBets:       0,
		Ended:           false,
		ChainID:         ev.ChainID,
		ContractAddress: ev.ContractAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
