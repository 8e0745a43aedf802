package orderupdate

import (
	"encoding/json"
	"testing"
)

func TestData_PrefersPascalCaseOverAlias(t *testing.T) {
	raw := `{
		"Type": "order_alert",
		"Data": {
			"OrderNo": "123",
			"Series": "EQ",
			"series": "eq-lower",
			"GoodTillDaysDate": "2026-01-01",
			"goodTillDaysDate": "wrong",
			"RefLtp": 100.5,
			"refLtp": 999
		}
	}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Type != "order_alert" {
		t.Errorf("Type = %q, want order_alert", msg.Type)
	}
	if msg.Data.OrderNo != "123" {
		t.Errorf("OrderNo = %q, want 123", msg.Data.OrderNo)
	}
	if msg.Data.Series != "EQ" {
		t.Errorf("Series = %q, want EQ (PascalCase should win)", msg.Data.Series)
	}
	if msg.Data.GoodTillDaysDate != "2026-01-01" {
		t.Errorf("GoodTillDaysDate = %q, want 2026-01-01", msg.Data.GoodTillDaysDate)
	}
	if msg.Data.RefLTP != 100.5 {
		t.Errorf("RefLTP = %v, want 100.5", msg.Data.RefLTP)
	}
}

func TestData_FallsBackToLowercaseWhenPascalAbsent(t *testing.T) {
	raw := `{
		"Type": "order_alert",
		"Data": {
			"series": "eq-only",
			"instrumentType": "EQUITY",
			"tick_size": 0.05,
			"algoId": "ALGO1"
		}
	}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Data.Series != "eq-only" {
		t.Errorf("Series = %q, want eq-only", msg.Data.Series)
	}
	if msg.Data.InstrumentType != "EQUITY" {
		t.Errorf("InstrumentType = %q, want EQUITY", msg.Data.InstrumentType)
	}
	if msg.Data.TickSize != 0.05 {
		t.Errorf("TickSize = %v, want 0.05", msg.Data.TickSize)
	}
	if msg.Data.AlgoID != "ALGO1" {
		t.Errorf("AlgoID = %q, want ALGO1", msg.Data.AlgoID)
	}
}

func TestData_StrikePriceAcceptsNumberOrString(t *testing.T) {
	numeric := `{"Type":"order_alert","Data":{"StrikePrice": 1250.5}}`
	var msg Message
	if err := json.Unmarshal([]byte(numeric), &msg); err != nil {
		t.Fatalf("Unmarshal numeric StrikePrice failed: %v", err)
	}
	if msg.Data.StrikePrice.String() != "1250.5" {
		t.Errorf("StrikePrice = %q, want 1250.5", msg.Data.StrikePrice.String())
	}

	stringy := `{"Type":"order_alert","Data":{"StrikePrice": "1250.5"}}`
	if err := json.Unmarshal([]byte(stringy), &msg); err != nil {
		t.Fatalf("Unmarshal string StrikePrice failed: %v", err)
	}
	if msg.Data.StrikePrice.String() != "1250.5" {
		t.Errorf("StrikePrice = %q, want 1250.5", msg.Data.StrikePrice.String())
	}
}

func TestData_AllFieldsOptional(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"Type":"order_alert","Data":{}}`), &msg); err != nil {
		t.Fatalf("Unmarshal empty Data failed: %v", err)
	}
	if msg.Data.OrderNo != "" || msg.Data.Quantity != 0 {
		t.Errorf("expected zero-valued Data, got %+v", msg.Data)
	}
}
