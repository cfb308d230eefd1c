package models_test

import (
	"testing"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

func TestFeatureVector_FieldsOmitUnpopulatedIndicators(t *testing.T) {
	sma := 101.25
	vec := models.FeatureVector{
		Timestamp: 3600,
		Symbol:    "BTCUSDT",
		SMA20:     &sma,
	}

	f := vec.Fields()
	if f["timestamp"] != "3600" || f["symbol"] != "BTCUSDT" {
		t.Errorf("Identity fields wrong: %v", f)
	}
	if f["sma_20"] != "101.25" {
		t.Errorf("Populated indicator missing: %v", f)
	}
	if len(f) != 3 {
		t.Errorf("Nil indicators must be omitted, got %d fields: %v", len(f), f)
	}
	if _, ok := f["rsi_14"]; ok {
		t.Error("rsi_14 not populated but serialized")
	}
}
