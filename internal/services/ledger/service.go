// Package ledger implements the portfolio ledger: the sole mutator of
// per-user portfolio state. Every operation loads the current state,
// validates, mutates, appends exactly one transaction per balance change,
// and persists - or fails leaving nothing modified.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

// Service implements interfaces.LedgerService over a PortfolioStore.
type Service struct {
	store           interfaces.PortfolioStore
	logger          *common.Logger
	startingBalance decimal.Decimal

	// mu serializes load-mutate-persist cycles. The store is last-write-wins,
	// so concurrent operations on the same user would otherwise drop updates.
	mu sync.Mutex
}

// NewService creates a ledger service. New portfolios are seeded with
// startingBalance and one initial deposit transaction.
func NewService(store interfaces.PortfolioStore, logger *common.Logger, startingBalance decimal.Decimal) *Service {
	return &Service{
		store:           store,
		logger:          logger,
		startingBalance: startingBalance,
	}
}

// Portfolio returns the full state for a user, seeding on first access.
func (s *Service) Portfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrSeed(ctx, userID)
}

// Assets returns holdings with quantity > 0.
func (s *Service) Assets(ctx context.Context, userID string) ([]models.Holding, error) {
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.ActiveAssets(), nil
}

// CashBalance returns the spendable cash pool.
func (s *Service) CashBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return p.CashBalance, nil
}

// CFDBalance returns the isolated CFD pool.
func (s *Service) CFDBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return p.CFDBalance, nil
}

// Buy purchases quantity of an asset at price, debiting cash. The cost is
// rounded to cents once and that figure drives both the cash delta and the
// recorded transaction amount.
func (s *Service) Buy(ctx context.Context, userID string, asset models.AssetRef, quantity, price decimal.Decimal) error {
	if !quantity.IsPositive() || !price.IsPositive() {
		return ErrInvalidAmount
	}
	if asset.ID == "" || !asset.Category.Valid() {
		return fmt.Errorf("invalid asset reference: id=%q category=%q", asset.ID, asset.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	cost := models.RoundMoney(quantity.Mul(price))
	if cost.GreaterThan(p.CashBalance) {
		return ErrInsufficientFunds
	}

	s.applyBuy(p, asset, quantity, price, cost)

	s.logger.Debug().
		Str("user_id", userID).
		Str("asset", asset.ID).
		Str("quantity", quantity.String()).
		Str("cost", cost.String()).
		Msg("Buy executed")

	return s.persist(ctx, p)
}

// applyBuy mutates the portfolio for a validated buy leg.
func (s *Service) applyBuy(p *models.Portfolio, asset models.AssetRef, quantity, price, cost decimal.Decimal) {
	p.CashBalance = p.CashBalance.Sub(cost)

	if h := p.Holding(asset.ID); h != nil {
		// Weighted-average blend; the only operation allowed to move AvgPrice.
		invested := h.Quantity.Mul(h.AvgPrice).Add(cost)
		total := h.Quantity.Add(quantity)
		h.AvgPrice = invested.Div(total)
		h.Quantity = total
		h.CurrentPrice = price
	} else {
		p.Assets = append(p.Assets, models.Holding{
			ID:           asset.ID,
			Symbol:       asset.Symbol,
			Name:         asset.Name,
			Quantity:     quantity,
			AvgPrice:     price,
			CurrentPrice: price,
			Icon:         asset.Icon,
			Category:     asset.Category,
		})
	}

	s.appendTransaction(p, models.Transaction{
		Type:        models.TxBuy,
		AssetID:     asset.ID,
		Quantity:    quantity,
		Price:       price,
		Amount:      cost,
		Description: fmt.Sprintf("Buy %s %s @ $%s", quantity, asset.Symbol, price.StringFixed(2)),
	})
}

// Sell disposes quantity of a held asset at price, crediting cash. AvgPrice
// is never touched by a sell.
func (s *Service) Sell(ctx context.Context, userID, assetID string, quantity, price decimal.Decimal) error {
	if !quantity.IsPositive() || !price.IsPositive() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	h := p.Holding(assetID)
	if h == nil || h.Quantity.LessThan(quantity) {
		return ErrInsufficientHoldings
	}

	proceeds := models.RoundMoney(quantity.Mul(price))
	s.applySell(p, h, quantity, price, proceeds)

	s.logger.Debug().
		Str("user_id", userID).
		Str("asset", assetID).
		Str("quantity", quantity.String()).
		Str("proceeds", proceeds.String()).
		Msg("Sell executed")

	return s.persist(ctx, p)
}

// applySell mutates the portfolio for a validated sell leg. The holding
// stays in storage as a zero row when fully sold.
func (s *Service) applySell(p *models.Portfolio, h *models.Holding, quantity, price, proceeds decimal.Decimal) {
	p.CashBalance = p.CashBalance.Add(proceeds)
	h.Quantity = h.Quantity.Sub(quantity)
	h.CurrentPrice = price

	s.appendTransaction(p, models.Transaction{
		Type:        models.TxSell,
		AssetID:     h.ID,
		Quantity:    quantity,
		Price:       price,
		Amount:      proceeds,
		Description: fmt.Sprintf("Sell %s %s @ $%s", quantity, h.Symbol, price.StringFixed(2)),
	})
}

// Exchange atomically converts one asset into another: the sell leg funds
// the buy leg, with both legs validated before either mutates. The quantity
// bought is proceeds / toPrice.
func (s *Service) Exchange(ctx context.Context, userID, fromID string, to models.AssetRef, quantity, fromPrice, toPrice decimal.Decimal) error {
	if !quantity.IsPositive() || !fromPrice.IsPositive() || !toPrice.IsPositive() {
		return ErrInvalidAmount
	}
	if to.ID == "" || !to.Category.Valid() {
		return fmt.Errorf("invalid asset reference: id=%q category=%q", to.ID, to.Category)
	}
	if to.ID == fromID {
		return fmt.Errorf("cannot exchange %s into itself", fromID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	// Validate both legs up front; nothing mutates until both pass.
	from := p.Holding(fromID)
	if from == nil || from.Quantity.LessThan(quantity) {
		return ErrInsufficientHoldings
	}
	proceeds := models.RoundMoney(quantity.Mul(fromPrice))
	if !proceeds.IsPositive() {
		return ErrInvalidAmount
	}
	buyQuantity := proceeds.Div(toPrice)

	s.applySell(p, from, quantity, fromPrice, proceeds)
	s.applyBuy(p, to, buyQuantity, toPrice, proceeds)

	s.logger.Debug().
		Str("user_id", userID).
		Str("from", fromID).
		Str("to", to.ID).
		Str("proceeds", proceeds.String()).
		Msg("Exchange executed")

	return s.persist(ctx, p)
}

// Deposit credits cash from a Telegram Stars purchase.
func (s *Service) Deposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	amount = models.RoundMoney(amount)
	p.CashBalance = p.CashBalance.Add(amount)
	s.appendTransaction(p, models.Transaction{
		Type:        models.TxDeposit,
		Amount:      amount,
		Description: fmt.Sprintf("Deposit via Telegram Stars: $%s", amount.StringFixed(2)),
	})

	return s.persist(ctx, p)
}

// Withdraw debits cash for a Telegram Stars payout.
func (s *Service) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	amount = models.RoundMoney(amount)
	if amount.GreaterThan(p.CashBalance) {
		return ErrInsufficientFunds
	}

	p.CashBalance = p.CashBalance.Sub(amount)
	s.appendTransaction(p, models.Transaction{
		Type:        models.TxWithdraw,
		Amount:      amount,
		Description: fmt.Sprintf("Withdrawal via Telegram Stars: $%s", amount.StringFixed(2)),
	})

	return s.persist(ctx, p)
}

// TransferToCFD moves cash into the CFD pool.
func (s *Service) TransferToCFD(ctx context.Context, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	amount = models.RoundMoney(amount)
	if amount.GreaterThan(p.CashBalance) {
		return ErrInsufficientFunds
	}

	p.CashBalance = p.CashBalance.Sub(amount)
	p.CFDBalance = p.CFDBalance.Add(amount)
	s.appendTransaction(p, models.Transaction{
		Type:        models.TxTransferToCFD,
		Amount:      amount,
		Description: fmt.Sprintf("Transfer to CFD: $%s", amount.StringFixed(2)),
	})

	return s.persist(ctx, p)
}

// TransferFromCFD moves CFD funds back to cash.
func (s *Service) TransferFromCFD(ctx context.Context, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	amount = models.RoundMoney(amount)
	if amount.GreaterThan(p.CFDBalance) {
		return ErrInsufficientCFDFunds
	}

	p.CFDBalance = p.CFDBalance.Sub(amount)
	p.CashBalance = p.CashBalance.Add(amount)
	s.appendTransaction(p, models.Transaction{
		Type:        models.TxTransferFromCFD,
		Amount:      amount,
		Description: fmt.Sprintf("Transfer from CFD: $%s", amount.StringFixed(2)),
	})

	return s.persist(ctx, p)
}

// UpdatePrices refreshes current prices on held assets from a feed snapshot.
// Not a ledger event: no transaction is appended, and AvgPrice and Quantity
// are untouched. Persists only when at least one held price actually changed.
func (s *Service) UpdatePrices(ctx context.Context, userID string, prices map[string]decimal.Decimal) error {
	if len(prices) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return err
	}

	changed := 0
	for i := range p.Assets {
		price, ok := prices[p.Assets[i].ID]
		if !ok || !price.IsPositive() || price.Equal(p.Assets[i].CurrentPrice) {
			continue
		}
		p.Assets[i].CurrentPrice = price
		changed++
	}
	if changed == 0 {
		return nil
	}

	return s.persist(ctx, p)
}

// AssetPnL returns unrealized profit/loss for one holding; zero values when
// the asset is unknown or not held.
func (s *Service) AssetPnL(ctx context.Context, userID, assetID string) (models.PnL, error) {
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return models.PnL{}, err
	}

	h := p.Holding(assetID)
	if h == nil || !h.Quantity.IsPositive() {
		return models.PnL{Amount: decimal.Zero, Percentage: decimal.Zero}, nil
	}

	return holdingPnL(*h), nil
}

// Summary returns derived analytics over the current state.
func (s *Service) Summary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(p), nil
}

// loadOrSeed fetches the portfolio or seeds a fresh one with the starting
// balance and its initial deposit transaction. Callers hold s.mu.
func (s *Service) loadOrSeed(ctx context.Context, userID string) (*models.Portfolio, error) {
	p, err := s.store.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, interfaces.ErrPortfolioNotFound) {
		return nil, fmt.Errorf("failed to load portfolio for user '%s': %w", userID, err)
	}

	p = &models.Portfolio{
		UserID:      userID,
		CashBalance: s.startingBalance,
		CFDBalance:  decimal.Zero,
	}
	s.appendTransaction(p, models.Transaction{
		Type:        models.TxDeposit,
		Amount:      s.startingBalance,
		Description: "Initial deposit",
	})

	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("starting_balance", s.startingBalance.String()).
		Msg("Seeded new portfolio")

	return p, nil
}

// appendTransaction stamps and appends a history entry. History is
// append-only: entries are never edited or removed.
func (s *Service) appendTransaction(p *models.Portfolio, tx models.Transaction) {
	tx.ID = uuid.NewString()
	tx.Timestamp = time.Now()
	p.Transactions = append(p.Transactions, tx)
}

func (s *Service) persist(ctx context.Context, p *models.Portfolio) error {
	if err := s.store.Save(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("Portfolio save failed")
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
