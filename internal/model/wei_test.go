package model

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestParseWei(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0", want: "0"},
		{in: "1000000000000000000", want: "1000000000000000000"},
		{in: "115792089237316195423570985008687907853269984665640564039457584007913129639936", want: "115792089237316195423570985008687907853269984665640564039457584007913129639936"},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "+1", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "1e18", wantErr: true},
		{in: " 1", wantErr: true},
		{in: "0x10", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseWei(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseWei(%q): expected error, got %s", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseWei(%q): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseWei(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestWeiAddExact(t *testing.T) {
	a := MustWei("1000000000000000000")
	b := MustWei("2000000000000000000")

	sum := a.Add(b)
	if sum.String() != "3000000000000000000" {
		t.Fatalf("sum mismatch: %s", sum)
	}
	if a.String() != "1000000000000000000" || b.String() != "2000000000000000000" {
		t.Fatalf("operands mutated: %s %s", a, b)
	}

	var zero Wei
	if got := zero.Add(a); got.Cmp(a) != 0 {
		t.Fatalf("zero add mismatch: %s", got)
	}
}

func TestNewWeiRejectsNegative(t *testing.T) {
	if _, err := NewWei(big.NewInt(-5)); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	w, err := NewWei(big.NewInt(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.String() != "5" {
		t.Fatalf("value mismatch: %s", w)
	}
}

func TestWeiJSONAcceptsStringOrInteger(t *testing.T) {
	var payload struct {
		A Wei `json:"a"`
		B Wei `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12345678901234567890","b":42}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A.String() != "12345678901234567890" || payload.B.String() != "42" {
		t.Fatalf("decoded mismatch: %s %s", payload.A, payload.B)
	}

	for _, bad := range []string{`{"a":-1}`, `{"a":1.5}`, `{"a":"abc"}`, `{"a":true}`, `{"a":1e3}`} {
		if err := json.Unmarshal([]byte(bad), &payload); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["a"].(string); !ok {
		t.Fatalf("a should be string")
	}
	if _, ok := decoded["b"].(string); !ok {
		t.Fatalf("b should be string")
	}
}
