package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
	"github.com/ostapkoval/startrade/internal/storage/memory"
)

const testUser = "42"

func newTestService() *Service {
	return NewService(memory.NewPortfolioStore(), common.NewSilentLogger(), decimal.NewFromInt(1000))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func btc() models.AssetRef {
	return models.AssetRef{ID: "btc", Symbol: "BTC", Name: "Bitcoin", Icon: "₿", Category: models.CategoryCrypto}
}

func eth() models.AssetRef {
	return models.AssetRef{ID: "eth", Symbol: "ETH", Name: "Ethereum", Icon: "Ξ", Category: models.CategoryCrypto}
}

func mustBuy(t *testing.T, s *Service, asset models.AssetRef, qty, price string) {
	t.Helper()
	if err := s.Buy(context.Background(), testUser, asset, dec(qty), dec(price)); err != nil {
		t.Fatalf("Buy(%s %s @ %s): %v", qty, asset.ID, price, err)
	}
}

func snapshot(t *testing.T, s *Service) *models.Portfolio {
	t.Helper()
	p, err := s.Portfolio(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	return p
}

func assertDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// --- Seeding ---

func TestFirstAccessSeedsPortfolio(t *testing.T) {
	s := newTestService()
	p := snapshot(t, s)

	assertDecimal(t, "cash", p.CashBalance, dec("1000"))
	assertDecimal(t, "cfd", p.CFDBalance, dec("0"))
	if len(p.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1 seed deposit", len(p.Transactions))
	}
	tx := p.Transactions[0]
	if tx.Type != models.TxDeposit || tx.Description != "Initial deposit" {
		t.Errorf("seed transaction = %+v", tx)
	}
	assertDecimal(t, "seed amount", tx.Amount, dec("1000"))
	if tx.ID == "" || tx.Timestamp.IsZero() {
		t.Error("seed transaction missing id or timestamp")
	}
}

// --- Buy ---

func TestBuyWeightedAverageCost(t *testing.T) {
	s := newTestService()
	mustBuy(t, s, btc(), "1", "100")
	mustBuy(t, s, btc(), "1", "200")

	p := snapshot(t, s)
	h := p.Holding("btc")
	if h == nil {
		t.Fatal("holding missing")
	}
	assertDecimal(t, "quantity", h.Quantity, dec("2"))
	assertDecimal(t, "avgPrice", h.AvgPrice, dec("150"))
	assertDecimal(t, "currentPrice", h.CurrentPrice, dec("200"))
	assertDecimal(t, "cash", p.CashBalance, dec("700"))
}

func TestBuyInsufficientFundsIsAtomic(t *testing.T) {
	s := newTestService()
	before := snapshot(t, s)

	err := s.Buy(context.Background(), testUser, btc(), dec("1"), dec("1000.01"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	after := snapshot(t, s)
	assertDecimal(t, "cash", after.CashBalance, before.CashBalance)
	if len(after.Assets) != 0 {
		t.Error("failed buy must not create a holding")
	}
	if len(after.Transactions) != len(before.Transactions) {
		t.Error("failed buy must not append a transaction")
	}
}

func TestBuyRejectsInvalidInput(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if err := s.Buy(ctx, testUser, btc(), dec("0"), dec("10")); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero quantity: err = %v, want ErrInvalidAmount", err)
	}
	if err := s.Buy(ctx, testUser, btc(), dec("1"), dec("-10")); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative price: err = %v, want ErrInvalidAmount", err)
	}

	bad := btc()
	bad.Category = "bonds"
	if err := s.Buy(ctx, testUser, bad, dec("1"), dec("10")); err == nil {
		t.Error("invalid category must be rejected")
	}
}

func TestBuySpendingExactBalanceSucceeds(t *testing.T) {
	s := newTestService()
	mustBuy(t, s, btc(), "10", "100")

	p := snapshot(t, s)
	assertDecimal(t, "cash", p.CashBalance, dec("0"))
}

// --- Sell ---

func TestSellNeverTouchesAvgPrice(t *testing.T) {
	s := newTestService()
	mustBuy(t, s, btc(), "10", "10")

	if err := s.Sell(context.Background(), testUser, "btc", dec("4"), dec("50")); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	p := snapshot(t, s)
	h := p.Holding("btc")
	assertDecimal(t, "quantity", h.Quantity, dec("6"))
	assertDecimal(t, "avgPrice", h.AvgPrice, dec("10"))
	assertDecimal(t, "currentPrice", h.CurrentPrice, dec("50"))
	// 1000 - 100 + 200
	assertDecimal(t, "cash", p.CashBalance, dec("1100"))
}

func TestSellMoreThanHeldIsAtomic(t *testing.T) {
	s := newTestService()
	mustBuy(t, s, btc(), "2", "100")
	before := snapshot(t, s)

	err := s.Sell(context.Background(), testUser, "btc", dec("5"), dec("100"))
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("err = %v, want ErrInsufficientHoldings", err)
	}

	after := snapshot(t, s)
	assertDecimal(t, "quantity", after.Holding("btc").Quantity, dec("2"))
	assertDecimal(t, "cash", after.CashBalance, before.CashBalance)
	if len(after.Transactions) != len(before.Transactions) {
		t.Error("transaction log length changed on rejected sell")
	}
}

func TestSellUnknownAssetFails(t *testing.T) {
	s := newTestService()
	err := s.Sell(context.Background(), testUser, "doge", dec("1"), dec("1"))
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Errorf("err = %v, want ErrInsufficientHoldings", err)
	}
}

func TestFullySoldHoldingIsNotActive(t *testing.T) {
	s := newTestService()
	mustBuy(t, s, btc(), "2", "100")

	if err := s.Sell(context.Background(), testUser, "btc", dec("2"), dec("120")); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	assets, err := s.Assets(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(assets) != 0 {
		t.Errorf("active assets = %d, want 0 after full sale", len(assets))
	}

	// The zero row may remain in storage but P&L treats it as absent.
	pnl, err := s.AssetPnL(context.Background(), testUser, "btc")
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "pnl amount", pnl.Amount, dec("0"))
	assertDecimal(t, "pnl percentage", pnl.Percentage, dec("0"))
}

// --- Conservation ---

func TestConservationAcrossBuySellSequence(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustBuy(t, s, btc(), "3", "100") // -300
	mustBuy(t, s, eth(), "5", "40")  // -200
	if err := s.Sell(ctx, testUser, "btc", dec("1"), dec("110")); err != nil { // +110
		t.Fatal(err)
	}
	if err := s.Sell(ctx, testUser, "eth", dec("5"), dec("35")); err != nil { // +175
		t.Fatal(err)
	}

	p := snapshot(t, s)
	assertDecimal(t, "cash", p.CashBalance, dec("785"))

	// Cash movements must reconcile exactly with the recorded amounts.
	total := p.CashBalance
	for _, tx := range p.Transactions {
		switch tx.Type {
		case models.TxBuy:
			total = total.Add(tx.Amount)
		case models.TxSell, models.TxDeposit:
			total = total.Sub(tx.Amount)
		}
	}
	assertDecimal(t, "reconciled", total, dec("0"))
}

// --- Deposit / Withdraw ---

func TestDepositRejectsNonPositiveAmounts(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	before := snapshot(t, s)

	for _, amount := range []string{"0", "-5"} {
		if err := s.Deposit(ctx, testUser, dec(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Deposit(%s): err = %v, want ErrInvalidAmount", amount, err)
		}
	}

	after := snapshot(t, s)
	assertDecimal(t, "cash", after.CashBalance, before.CashBalance)
	if len(after.Transactions) != len(before.Transactions) {
		t.Error("rejected deposit appended a transaction")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if err := s.Deposit(ctx, testUser, dec("250.505")); err != nil {
		t.Fatal(err)
	}
	p := snapshot(t, s)
	// Amounts are rounded to cents at the transaction boundary.
	assertDecimal(t, "cash after deposit", p.CashBalance, dec("1250.51"))

	if err := s.Withdraw(ctx, testUser, dec("1250.51")); err != nil {
		t.Fatal(err)
	}
	p = snapshot(t, s)
	assertDecimal(t, "cash after withdraw", p.CashBalance, dec("0"))

	if err := s.Withdraw(ctx, testUser, dec("0.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdraft withdraw: err = %v, want ErrInsufficientFunds", err)
	}
}

// --- Transfers ---

func TestTransferRoundTrip(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	before := snapshot(t, s)

	if err := s.TransferToCFD(ctx, testUser, dec("100")); err != nil {
		t.Fatal(err)
	}
	mid := snapshot(t, s)
	assertDecimal(t, "cash", mid.CashBalance, dec("900"))
	assertDecimal(t, "cfd", mid.CFDBalance, dec("100"))

	if err := s.TransferFromCFD(ctx, testUser, dec("100")); err != nil {
		t.Fatal(err)
	}
	after := snapshot(t, s)
	assertDecimal(t, "cash restored", after.CashBalance, before.CashBalance)
	assertDecimal(t, "cfd restored", after.CFDBalance, before.CFDBalance)

	if got := len(after.Transactions) - len(before.Transactions); got != 2 {
		t.Errorf("transactions appended = %d, want exactly 2", got)
	}
}

func TestTransferOverdraftsRejected(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if err := s.TransferToCFD(ctx, testUser, dec("1000.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("to CFD: err = %v, want ErrInsufficientFunds", err)
	}
	if err := s.TransferFromCFD(ctx, testUser, dec("0.01")); !errors.Is(err, ErrInsufficientCFDFunds) {
		t.Errorf("from CFD: err = %v, want ErrInsufficientCFDFunds", err)
	}

	p := snapshot(t, s)
	assertDecimal(t, "cash", p.CashBalance, dec("1000"))
	assertDecimal(t, "cfd", p.CFDBalance, dec("0"))
}

// --- Price updates ---

func TestUpdatePricesIsNotALedgerEvent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	mustBuy(t, s, btc(), "2", "100")
	before := snapshot(t, s)

	err := s.UpdatePrices(ctx, testUser, map[string]decimal.Decimal{
		"btc":  dec("150"),
		"doge": dec("0.07"), // not held, ignored
	})
	if err != nil {
		t.Fatal(err)
	}

	after := snapshot(t, s)
	h := after.Holding("btc")
	assertDecimal(t, "currentPrice", h.CurrentPrice, dec("150"))
	assertDecimal(t, "avgPrice", h.AvgPrice, dec("100"))
	assertDecimal(t, "quantity", h.Quantity, dec("2"))
	if len(after.Transactions) != len(before.Transactions) {
		t.Error("price refresh appended a transaction")
	}
}

func TestAssetPnL(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	mustBuy(t, s, btc(), "2", "100")

	if err := s.UpdatePrices(ctx, testUser, map[string]decimal.Decimal{"btc": dec("150")}); err != nil {
		t.Fatal(err)
	}

	pnl, err := s.AssetPnL(ctx, testUser, "btc")
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "amount", pnl.Amount, dec("100"))
	assertDecimal(t, "percentage", pnl.Percentage, dec("50"))

	unknown, err := s.AssetPnL(ctx, testUser, "doge")
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "unknown amount", unknown.Amount, dec("0"))
	assertDecimal(t, "unknown percentage", unknown.Percentage, dec("0"))
}

// --- Exchange ---

func TestExchangeIsAtomic(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	mustBuy(t, s, btc(), "1", "100")
	before := snapshot(t, s)

	// Sell leg invalid: nothing may change, including no sold-but-not-bought
	// intermediate state.
	err := s.Exchange(ctx, testUser, "btc", eth(), dec("2"), dec("100"), dec("50"))
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("err = %v, want ErrInsufficientHoldings", err)
	}
	after := snapshot(t, s)
	assertDecimal(t, "quantity", after.Holding("btc").Quantity, dec("1"))
	if after.Holding("eth") != nil {
		t.Error("failed exchange created the target holding")
	}
	if len(after.Transactions) != len(before.Transactions) {
		t.Error("failed exchange appended transactions")
	}
}

func TestExchangeConvertsProceeds(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	mustBuy(t, s, btc(), "1", "100")

	if err := s.Exchange(ctx, testUser, "btc", eth(), dec("1"), dec("120"), dec("40")); err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	p := snapshot(t, s)
	assertDecimal(t, "btc quantity", p.Holding("btc").Quantity, dec("0"))
	assertDecimal(t, "eth quantity", p.Holding("eth").Quantity, dec("3"))
	assertDecimal(t, "eth avgPrice", p.Holding("eth").AvgPrice, dec("40"))
	// Cash is unchanged: the sell leg funds the buy leg exactly.
	assertDecimal(t, "cash", p.CashBalance, dec("900"))

	// Exactly two entries appended: the sell then the buy.
	txs := p.Transactions
	if len(txs) != 4 { // seed deposit, initial buy, exchange sell, exchange buy
		t.Fatalf("transactions = %d, want 4", len(txs))
	}
	if txs[2].Type != models.TxSell || txs[3].Type != models.TxBuy {
		t.Errorf("exchange legs = %s, %s; want sell, buy", txs[2].Type, txs[3].Type)
	}
}

func TestExchangeIntoItselfRejected(t *testing.T) {
	s := newTestService()
	mustBuy(t, s, btc(), "1", "100")

	if err := s.Exchange(context.Background(), testUser, "btc", btc(), dec("1"), dec("100"), dec("100")); err == nil {
		t.Error("exchanging an asset into itself must fail")
	}
}

// --- Persistence failures ---

type flakyStore struct {
	interfaces.PortfolioStore
	failSaves bool
}

func (f *flakyStore) Save(ctx context.Context, p *models.Portfolio) error {
	if f.failSaves {
		return errors.New("disk full")
	}
	return f.PortfolioStore.Save(ctx, p)
}

func TestPersistenceFailureIsDistinguishable(t *testing.T) {
	store := &flakyStore{PortfolioStore: memory.NewPortfolioStore()}
	s := NewService(store, common.NewSilentLogger(), decimal.NewFromInt(1000))
	ctx := context.Background()

	// Seed while the store is healthy.
	if _, err := s.Portfolio(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	store.failSaves = true
	err := s.Deposit(ctx, testUser, dec("50"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}

	// The stored state must still be the pre-failure one.
	store.failSaves = false
	p := snapshot(t, s)
	assertDecimal(t, "cash", p.CashBalance, dec("1000"))
}

func TestBalanceReads(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	cash, err := s.CashBalance(ctx, testUser)
	if err != nil {
		t.Fatalf("CashBalance: %v", err)
	}
	assertDecimal(t, "cash", cash, dec("1000"))

	if err := s.TransferToCFD(ctx, testUser, dec("350")); err != nil {
		t.Fatalf("TransferToCFD: %v", err)
	}

	cash, err = s.CashBalance(ctx, testUser)
	if err != nil {
		t.Fatalf("CashBalance: %v", err)
	}
	assertDecimal(t, "cash after transfer", cash, dec("650"))

	cfd, err := s.CFDBalance(ctx, testUser)
	if err != nil {
		t.Fatalf("CFDBalance: %v", err)
	}
	assertDecimal(t, "cfd after transfer", cfd, dec("350"))
}

type countingStore struct {
	interfaces.PortfolioStore
	saves int
}

func (c *countingStore) Save(ctx context.Context, p *models.Portfolio) error {
	c.saves++
	return c.PortfolioStore.Save(ctx, p)
}

func TestUpdatePricesSkipsUnchangedPrices(t *testing.T) {
	store := &countingStore{PortfolioStore: memory.NewPortfolioStore()}
	s := NewService(store, common.NewSilentLogger(), decimal.NewFromInt(1000))
	ctx := context.Background()

	mustBuy(t, s, btc(), "1", "100")
	before := store.saves

	// Same price as stored: nothing changed, nothing written.
	if err := s.UpdatePrices(ctx, testUser, map[string]decimal.Decimal{"btc": dec("100")}); err != nil {
		t.Fatalf("UpdatePrices: %v", err)
	}
	if store.saves != before {
		t.Fatalf("saves = %d after identical prices, want %d", store.saves, before)
	}

	// A moved price is applied and persisted.
	if err := s.UpdatePrices(ctx, testUser, map[string]decimal.Decimal{"btc": dec("105")}); err != nil {
		t.Fatalf("UpdatePrices: %v", err)
	}
	if store.saves != before+1 {
		t.Fatalf("saves = %d after changed price, want %d", store.saves, before+1)
	}
	p := snapshot(t, s)
	assertDecimal(t, "current price", p.Holding("btc").CurrentPrice, dec("105"))
}
