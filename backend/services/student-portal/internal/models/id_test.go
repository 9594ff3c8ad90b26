package models

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var b Billing
	if err := json.Unmarshal([]byte(`{"id":42,"user_id":"MHS001","debt_id":null,"amount":3500000}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.ID != "42" || b.UserID != "MHS001" || b.DebtID != "" {
		t.Fatalf("unexpected ids: %+v", b)
	}
	if n, ok := b.ID.Int64(); !ok || n != 42 {
		t.Fatalf("Int64() = %d, %v", n, ok)
	}

	out, err := json.Marshal(b.ID)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"42"` {
		t.Fatalf("marshal = %s", out)
	}
}
