package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Wei is a non-negative integer amount in the chain's smallest unit.
// The zero value is 0. Wei values are immutable; arithmetic returns new values.
type Wei struct {
	v *big.Int
}

// NewWei copies v into a Wei. Negative values are rejected.
func NewWei(v *big.Int) (Wei, error) {
	if v == nil {
		return Wei{}, nil
	}
	if v.Sign() < 0 {
		return Wei{}, fmt.Errorf("negative amount: %s", v)
	}
	return Wei{v: new(big.Int).Set(v)}, nil
}

// WeiFromUint64 builds a Wei from a machine integer.
func WeiFromUint64(n uint64) Wei {
	return Wei{v: new(big.Int).SetUint64(n)}
}

// ParseWei parses a base-10 unsigned integer without sign, fraction or exponent.
func ParseWei(s string) (Wei, error) {
	if !isDigits(s) {
		return Wei{}, fmt.Errorf("invalid amount: %q", s)
	}
	parsed, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Wei{}, fmt.Errorf("invalid amount: %q", s)
	}
	return Wei{v: parsed}, nil
}

// MustWei is ParseWei for constants and tests.
func MustWei(s string) Wei {
	w, err := ParseWei(s)
	if err != nil {
		panic(err)
	}
	return w
}

// Big returns a copy of the amount.
func (w Wei) Big() *big.Int {
	if w.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(w.v)
}

func (w Wei) String() string {
	if w.v == nil {
		return "0"
	}
	return w.v.String()
}

func (w Wei) IsZero() bool {
	return w.v == nil || w.v.Sign() == 0
}

// Add returns w + o.
func (w Wei) Add(o Wei) Wei {
	sum := w.Big()
	if o.v != nil {
		sum.Add(sum, o.v)
	}
	return Wei{v: sum}
}

func (w Wei) Cmp(o Wei) int {
	return w.Big().Cmp(o.Big())
}

// MarshalJSON encodes the amount as a decimal string.
func (w Wei) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON accepts a decimal string or an integer literal.
func (w *Wei) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	parsed, err := ParseWei(text)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
