package model

import "time"

// EventKind names a pool lifecycle event.
type EventKind string

const (
	KindPoolCreated  EventKind = "pool_created"
	KindBetPlaced    EventKind = "bet_placed"
	KindPoolResolved EventKind = "pool_resolved"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindPoolCreated, KindBetPlaced, KindPoolResolved:
		return true
	default:
		return false
	}
}

// Score bounds for bets and results (two six-sided dice).
const (
	MinScore = 1
	MaxScore = 12
)

// Event is one immutable entry of the event log. Exactly one of the
// variant payloads is set, matching Kind.
type Event struct {
	Seq             int64     `json:"seq"`
	Kind            EventKind `json:"event"`
	PoolID          uint64    `json:"poolId"`
	ChainID         uint64    `json:"chainId"`
	ContractAddress string    `json:"contractAddress"`
	TxHash          string    `json:"txHash,omitempty"`
	BlockNumber     *uint64   `json:"blockNumber,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`

	*PoolCreated
	*BetPlaced
	*PoolResolved
}

// PoolCreated is the payload of a pool_created event.
type PoolCreated struct {
	StartTime       int64 `json:"startTime"`
	EndTime         int64 `json:"endTime"`
	DurationSeconds int64 `json:"durationSeconds"`
	BaseAmountWei   Wei   `json:"baseAmountWei"`
}

// BetPlaced is the payload of a bet_placed event.
type BetPlaced struct {
	User        string `json:"user"`
	AmountWei   Wei    `json:"amountWei"`
	TargetScore int    `json:"targetScore"`
	BetIndex    int64  `json:"betIndex"`
}

// PoolResolved is the payload of a pool_resolved event.
type PoolResolved struct {
	Result             int      `json:"result"`
	TotalAmountWei     Wei      `json:"totalAmountWei"`
	WinnerAddresses    []string `json:"winnerAddresses"`
	PayoutPerWinnerWei Wei      `json:"payoutPerWinnerWei"`
	WinnerBetIndices   []int64  `json:"winnerBetIndices"`
}

// Clone returns a deep copy so stores never share slices or pointers with callers.
func (e Event) Clone() Event {
	out := e
	if e.BlockNumber != nil {
		bn := *e.BlockNumber
		out.BlockNumber = &bn
	}
	if e.PoolCreated != nil {
		pc := *e.PoolCreated
		out.PoolCreated = &pc
	}
	if e.BetPlaced != nil {
		bp := *e.BetPlaced
		out.BetPlaced = &bp
	}
	if e.PoolResolved != nil {
		pr := *e.PoolResolved
		pr.WinnerAddresses = append([]string(nil), e.PoolResolved.WinnerAddresses...)
		pr.WinnerBetIndices = append([]int64(nil), e.PoolResolved.WinnerBetIndices...)
		if pr.WinnerAddresses == nil {
			pr.WinnerAddresses = []string{}
		}
		if pr.WinnerBetIndices == nil {
			pr.WinnerBetIndices = []int64{}
		}
		out.PoolResolved = &pr
	}
	return out
}
