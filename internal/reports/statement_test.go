package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/fidelicard/loyalty/internal/ledger"
	"github.com/fidelicard/loyalty/internal/models"
)

func TestWriteStatementProducesPDF(t *testing.T) {
	customer := &models.Customer{Name: "Ana", CardID: "CARD001", Credits: 6}
	info := &ledger.Info{Name: "Ana", Credits: 6, DaysRemaining: "12", Days: 12, ExpiresOn: "10/04/2026"}
	entries := []models.HistoryEntry{
		{ID: 2, CardID: "CARD001", CustomerName: "Ana", MerchantLabel: "CHAMA", Amount: -4, CreatedAt: time.Now()},
		{ID: 1, CardID: "CARD001", CustomerName: "Ana", MerchantLabel: "MANUAL", Amount: 5, CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	if errWrite := WriteStatement(&buf, customer, info, entries); errWrite != nil {
		t.Fatalf("write statement: %v", errWrite)
	}

	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, %d bytes", len(out))
	}
	if len(out) < 500 {
		t.Fatalf("statement suspiciously small: %d bytes", len(out))
	}
}

func TestWriteStatementEmptyHistory(t *testing.T) {
	customer := &models.Customer{Name: "Bruno", CardID: "CARD002", Credits: 10}
	info := &ledger.Info{Name: "Bruno", Credits: 10, DaysRemaining: ledger.ExpiredMarker, Expired: true, ExpiresOn: "01/01/2026"}

	var buf bytes.Buffer
	if errWrite := WriteStatement(&buf, customer, info, nil); errWrite != nil {
		t.Fatalf("write statement: %v", errWrite)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}
