package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"diceledger/internal/model"
)

func TestJsonlStorageAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewJsonlStorage(path)

	first := []model.Event{
		{Seq: 1, Kind: model.KindPoolCreated, PoolID: 1, PoolCreated: &model.PoolCreated{StartTime: 1000, EndTime: 2000, DurationSeconds: 1000, BaseAmountWei: model.MustWei("1")}},
	}
	second := []model.Event{
		{Seq: 2, Kind: model.KindBetPlaced, PoolID: 1, TxHash: "0xaa", BetPlaced: &model.BetPlaced{User: "0xbb", AmountWei: model.MustWei("5"), TargetScore: 7}},
	}

	if err := sink.PutEventBatch(first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutEventBatch(second); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if err := sink.PutEventBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var kinds []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("line is not json: %v", err)
		}
		kinds = append(kinds, line["event"].(string))
	}
	if len(kinds) != 2 || kinds[0] != "pool_created" || kinds[1] != "bet_placed" {
		t.Fatalf("unexpected lines: %v", kinds)
	}
}
