// Package models defines data structures for Startrade
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a tradable asset. Validated at construction; unknown
// categories are rejected rather than carried through.
type Category string

const (
	CategoryStocks   Category = "stocks"
	CategoryCrypto   Category = "crypto"
	CategoryGold     Category = "gold"
	CategoryCurrency Category = "currency"
)

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryStocks, CategoryCrypto, CategoryGold, CategoryCurrency:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown asset category: %q", s)
	}
}

// Valid reports whether the category is one of the known variants.
func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// TransactionType identifies a ledger event.
type TransactionType string

const (
	TxBuy             TransactionType = "buy"
	TxSell            TransactionType = "sell"
	TxDeposit         TransactionType = "deposit"
	TxWithdraw        TransactionType = "withdraw"
	TxTransferToCFD   TransactionType = "transfer_to_cfd"
	TxTransferFromCFD TransactionType = "transfer_from_cfd"
)

// Transaction is one immutable entry in the portfolio history. Amount is
// stored as a positive magnitude; its direction is implied by Type.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	AssetID     string          `json:"asset_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity,omitempty"`
	Price       decimal.Decimal `json:"price,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
}

// AssetRef carries the catalog identity of an asset into a buy or exchange
// request. Quantity and price travel separately.
type AssetRef struct {
	ID       string   `json:"id"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Category Category `json:"category"`
}

// Holding represents an owned position in one asset.
type Holding struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Icon         string          `json:"icon"`
	Category     Category        `json:"category"`
}

// MarketValue returns quantity × current price.
func (h Holding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.CurrentPrice)
}

// CostBasis returns quantity × weighted-average purchase price.
func (h Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AvgPrice)
}

// Portfolio is the full client state for one user: cash pools, holdings and
// the append-only transaction history.
type Portfolio struct {
	UserID       string          `json:"user_id"`
	CashBalance  decimal.Decimal `json:"cash_balance"`
	CFDBalance   decimal.Decimal `json:"cfd_balance"`
	Assets       []Holding       `json:"assets"`
	Transactions []Transaction   `json:"transactions"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Holding returns a pointer to the holding with the given asset id, or nil.
// Zero-quantity rows are still addressable here; use ActiveAssets for the
// display set.
func (p *Portfolio) Holding(assetID string) *Holding {
	for i := range p.Assets {
		if p.Assets[i].ID == assetID {
			return &p.Assets[i]
		}
	}
	return nil
}

// ActiveAssets returns holdings with quantity > 0. Fully sold positions stay
// in storage as zero rows but are never reported as held.
func (p *Portfolio) ActiveAssets() []Holding {
	active := make([]Holding, 0, len(p.Assets))
	for _, a := range p.Assets {
		if a.Quantity.IsPositive() {
			active = append(active, a)
		}
	}
	return active
}

// AssetsValue returns the market value of all holdings at their last known
// prices.
func (p *Portfolio) AssetsValue() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Assets {
		total = total.Add(a.MarketValue())
	}
	return total
}

// InvestedValue returns the cost basis of all holdings.
func (p *Portfolio) InvestedValue() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Assets {
		total = total.Add(a.CostBasis())
	}
	return total
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate persisted state behind the ledger's back.
func (p *Portfolio) Clone() *Portfolio {
	cp := *p
	cp.Assets = make([]Holding, len(p.Assets))
	copy(cp.Assets, p.Assets)
	cp.Transactions = make([]Transaction, len(p.Transactions))
	copy(cp.Transactions, p.Transactions)
	return &cp
}

// PnL is a profit-and-loss result: absolute amount plus percentage of the
// invested base.
type PnL struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PortfolioSummary carries the derived analytics over one portfolio
// snapshot. Computed on response, never persisted.
type PortfolioSummary struct {
	CashBalance   decimal.Decimal `json:"cash_balance"`
	CFDBalance    decimal.Decimal `json:"cfd_balance"`
	TotalValue    decimal.Decimal `json:"total_value"`    // cash + holdings at current prices
	TotalInvested decimal.Decimal `json:"total_invested"` // holdings at weighted-average cost
	PnL           PnL             `json:"pnl"`            // trading-only, excludes cash movements
}

// TransactionView is a history entry decorated for display.
type TransactionView struct {
	Transaction
	Label string `json:"label"`
}

// RoundMoney rounds a monetary value to cents. Applied at transaction-amount
// boundaries so the cash delta and the recorded amount always agree.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
