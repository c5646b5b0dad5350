package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/models"
)

// Derived analytics are pure functions over a portfolio snapshot plus the
// prices already reflected on its holdings. Nothing here mutates or persists.

var hundred = decimal.NewFromInt(100)

// TotalValue returns cash plus holdings at their current prices. CFD funds
// are a separate pool and are not part of the trading portfolio value.
func TotalValue(p *models.Portfolio) decimal.Decimal {
	return p.CashBalance.Add(p.AssetsValue())
}

// TotalInvested returns the weighted-average cost basis of all holdings.
func TotalInvested(p *models.Portfolio) decimal.Decimal {
	return p.InvestedValue()
}

// TotalPnL returns aggregate trading profit/loss: current asset value minus
// invested amount. Deposits and withdrawals never influence this figure.
func TotalPnL(p *models.Portfolio) models.PnL {
	invested := p.InvestedValue()
	amount := p.AssetsValue().Sub(invested)

	percentage := decimal.Zero
	if invested.IsPositive() {
		percentage = amount.Div(invested).Mul(hundred)
	}

	return models.PnL{Amount: amount, Percentage: percentage}
}

// holdingPnL returns unrealized profit/loss for a single held position.
// Caller guarantees quantity > 0.
func holdingPnL(h models.Holding) models.PnL {
	invested := h.CostBasis()
	amount := h.MarketValue().Sub(invested)

	percentage := decimal.Zero
	if invested.IsPositive() {
		percentage = amount.Div(invested).Mul(hundred)
	}

	return models.PnL{Amount: amount, Percentage: percentage}
}

// Summarize computes the full analytics block for one snapshot.
func Summarize(p *models.Portfolio) *models.PortfolioSummary {
	return &models.PortfolioSummary{
		CashBalance:   p.CashBalance,
		CFDBalance:    p.CFDBalance,
		TotalValue:    TotalValue(p),
		TotalInvested: TotalInvested(p),
		PnL:           TotalPnL(p),
	}
}
