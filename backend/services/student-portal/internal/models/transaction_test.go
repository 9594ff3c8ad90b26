package models

import (
	"testing"
	"time"
)

func TestTransactionAdvanceIsMonotonic(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		from    TransactionStatus
		to      TransactionStatus
		want    bool
		wantEnd TransactionStatus
	}{
		{"initiated to pending", TransactionInitiated, TransactionPending, true, TransactionPending},
		{"initiated to paid", TransactionInitiated, TransactionPaid, true, TransactionPaid},
		{"pending to paid", TransactionPending, TransactionPaid, true, TransactionPaid},
		{"paid to pending", TransactionPaid, TransactionPending, false, TransactionPaid},
		{"pending to initiated", TransactionPending, TransactionInitiated, false, TransactionPending},
		{"same status", TransactionPending, TransactionPending, false, TransactionPending},
		{"unknown target", TransactionInitiated, TransactionStatus("expire"), false, TransactionInitiated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := Transaction{Status: tt.from}
			if got := tx.Advance(tt.to, now); got != tt.want {
				t.Errorf("Advance() = %v, want %v", got, tt.want)
			}
			if tx.Status != tt.wantEnd {
				t.Errorf("status = %s, want %s", tx.Status, tt.wantEnd)
			}
		})
	}
}
