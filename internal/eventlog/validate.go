package eventlog

import (
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"diceledger/internal/model"
)

// NormalizeAddress lowercases a wallet address. Well-formed EVM addresses are
// parsed first so mixed-case checksummed input maps to the same identity.
func NormalizeAddress(input string) string {
	input = strings.TrimSpace(input)
	if common.IsHexAddress(input) {
		return strings.ToLower(common.HexToAddress(input).Hex())
	}
	return strings.ToLower(input)
}

// NormalizeTxHash lowercases a transaction hash, canonicalising 32-byte hex hashes.
func NormalizeTxHash(input string) string {
	input = strings.TrimSpace(input)
	if data, err := hexutil.Decode(input); err == nil && len(data) == common.HashLength {
		return common.BytesToHash(data).Hex()
	}
	return strings.ToLower(input)
}

func checkPoolID(poolID uint64) error {
	if poolID > math.MaxInt64 {
		return model.Invalid("poolId", "out of range")
	}
	return nil
}

func checkBlockNumber(blockNumber *uint64) error {
	if blockNumber != nil && *blockNumber > math.MaxInt64 {
		return model.Invalid("blockNumber", "out of range")
	}
	return nil
}

func checkScore(field string, score int) error {
	if score < model.MinScore || score > model.MaxScore {
		return model.Invalid(field, "must be between 1 and 12")
	}
	return nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return model.Invalid(field, "is required")
	}
	return nil
}

func (in PoolCreatedInput) validate() error {
	if err := checkPoolID(in.PoolID); err != nil {
		return err
	}
	if in.EndTime <= in.StartTime {
		return model.Invalid("endTime", "must be after startTime")
	}
	if in.DurationSeconds < 0 {
		return model.Invalid("durationSeconds", "must not be negative")
	}
	return checkBlockNumber(in.BlockNumber)
}

func (in BetInput) validate() error {
	if err := checkPoolID(in.PoolID); err != nil {
		return err
	}
	if err := requireText("txHash", in.TxHash); err != nil {
		return err
	}
	if err := requireText("user", in.User); err != nil {
		return err
	}
	if err := checkScore("targetScore", in.TargetScore); err != nil {
		return err
	}
	if in.BetIndex < 0 {
		return model.Invalid("betIndex", "must not be negative")
	}
	return checkBlockNumber(in.BlockNumber)
}

func (in PoolResolvedInput) validate() error {
	if err := checkPoolID(in.PoolID); err != nil {
		return err
	}
	if err := requireText("txHash", in.TxHash); err != nil {
		return err
	}
	if err := checkScore("result", in.Result); err != nil {
		return err
	}
	for _, addr := range in.WinnerAddresses {
		if err := requireText("winnerAddresses", addr); err != nil {
			return err
		}
	}
	for _, idx := range in.WinnerBetIndices {
		if idx < 0 {
			return model.Invalid("winnerBetIndices", "must not be negative")
		}
	}
	return checkBlockNumber(in.BlockNumber)
}
