package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

func seedHistory(t *testing.T, s *Service) {
	t.Helper()
	ctx := context.Background()
	mustBuy(t, s, btc(), "1", "100")
	mustBuy(t, s, eth(), "2", "50")
	if err := s.Sell(ctx, testUser, "btc", dec("1"), dec("110")); err != nil {
		t.Fatal(err)
	}
	if err := s.Deposit(ctx, testUser, dec("500")); err != nil {
		t.Fatal(err)
	}
	if err := s.TransferToCFD(ctx, testUser, dec("100")); err != nil {
		t.Fatal(err)
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	s := newTestService()
	seedHistory(t, s)

	views, err := s.Transactions(context.Background(), testUser, interfaces.HistoryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 6 { // seed deposit + 5 operations
		t.Fatalf("views = %d, want 6", len(views))
	}

	for i := 1; i < len(views); i++ {
		if views[i].Timestamp.After(views[i-1].Timestamp) {
			t.Errorf("history out of order at %d: %s after %s", i, views[i].Timestamp, views[i-1].Timestamp)
		}
	}

	if views[0].Type != models.TxTransferToCFD {
		t.Errorf("newest entry = %s, want transfer_to_cfd", views[0].Type)
	}
	if views[len(views)-1].Description != "Initial deposit" {
		t.Errorf("oldest entry = %q, want the seed deposit", views[len(views)-1].Description)
	}
}

func TestTransactionsEqualTimestampsStaySorted(t *testing.T) {
	s := newTestService()
	p := snapshot(t, s)

	// Rapid operations can share a timestamp; later insertions must still
	// come first.
	now := time.Now()
	p.Transactions = append(p.Transactions,
		models.Transaction{ID: "a", Type: models.TxDeposit, Amount: dec("1"), Timestamp: now},
		models.Transaction{ID: "b", Type: models.TxDeposit, Amount: dec("2"), Timestamp: now},
	)
	if err := s.store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	views, err := s.Transactions(context.Background(), testUser, interfaces.HistoryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if views[0].ID != "b" || views[1].ID != "a" {
		t.Errorf("equal-timestamp order = %s, %s; want b, a", views[0].ID, views[1].ID)
	}
}

func TestTransactionsFilterByType(t *testing.T) {
	s := newTestService()
	seedHistory(t, s)

	views, err := s.Transactions(context.Background(), testUser, interfaces.HistoryFilter{
		Types: []models.TransactionType{models.TxBuy, models.TxSell},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 3 {
		t.Fatalf("views = %d, want 3 trades", len(views))
	}
	for _, v := range views {
		if v.Type != models.TxBuy && v.Type != models.TxSell {
			t.Errorf("unexpected type %s in filtered view", v.Type)
		}
	}
}

func TestTransactionsFilterByAsset(t *testing.T) {
	s := newTestService()
	seedHistory(t, s)

	views, err := s.Transactions(context.Background(), testUser, interfaces.HistoryFilter{AssetID: "btc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 { // buy + sell
		t.Fatalf("views = %d, want 2", len(views))
	}
}

func TestTransactionsLimit(t *testing.T) {
	s := newTestService()
	seedHistory(t, s)

	views, err := s.Transactions(context.Background(), testUser, interfaces.HistoryFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		txType models.TransactionType
		want   string
	}{
		{models.TxBuy, "Purchase"},
		{models.TxSell, "Sale"},
		{models.TxDeposit, "Deposit"},
		{models.TxWithdraw, "Withdrawal"},
		{models.TxTransferToCFD, "Transfer to CFD"},
		{models.TxTransferFromCFD, "Transfer from CFD"},
		{"mystery", "mystery"},
	}
	for _, tt := range tests {
		if got := Label(tt.txType); got != tt.want {
			t.Errorf("Label(%s) = %q, want %q", tt.txType, got, tt.want)
		}
	}
}
