package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/models"
)

// LedgerService is the sole mutator of portfolio state. Every operation is
// atomic: it either validates, applies, appends exactly one transaction per
// balance change and persists, or it fails leaving nothing modified.
type LedgerService interface {
	// Portfolio returns the full state for a user, seeding a fresh portfolio
	// with the starting balance on first access.
	Portfolio(ctx context.Context, userID string) (*models.Portfolio, error)

	// Assets returns holdings with quantity > 0.
	Assets(ctx context.Context, userID string) ([]models.Holding, error)

	// CashBalance returns the spendable cash pool.
	CashBalance(ctx context.Context, userID string) (decimal.Decimal, error)

	// CFDBalance returns the isolated CFD pool.
	CFDBalance(ctx context.Context, userID string) (decimal.Decimal, error)

	// Buy purchases quantity of an asset at price, debiting cash.
	Buy(ctx context.Context, userID string, asset models.AssetRef, quantity, price decimal.Decimal) error

	// Sell disposes quantity of a held asset at price, crediting cash.
	Sell(ctx context.Context, userID, assetID string, quantity, price decimal.Decimal) error

	// Exchange atomically sells quantity of one asset and buys another with
	// the proceeds. Both legs are validated before either applies.
	Exchange(ctx context.Context, userID, fromID string, to models.AssetRef, quantity, fromPrice, toPrice decimal.Decimal) error

	// Deposit credits cash (Telegram Stars purchase).
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) error

	// Withdraw debits cash (Telegram Stars payout).
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal) error

	// TransferToCFD moves cash into the CFD pool.
	TransferToCFD(ctx context.Context, userID string, amount decimal.Decimal) error

	// TransferFromCFD moves CFD funds back to cash.
	TransferFromCFD(ctx context.Context, userID string, amount decimal.Decimal) error

	// UpdatePrices refreshes current prices on held assets from a feed
	// snapshot. Not a ledger event: no transaction is appended.
	UpdatePrices(ctx context.Context, userID string, prices map[string]decimal.Decimal) error

	// Transactions returns the history newest-first, optionally filtered.
	Transactions(ctx context.Context, userID string, filter HistoryFilter) ([]models.TransactionView, error)

	// AssetPnL returns unrealized profit/loss for one holding; zero values
	// when the asset is unknown or not held.
	AssetPnL(ctx context.Context, userID, assetID string) (models.PnL, error)

	// Summary returns derived analytics over the current state.
	Summary(ctx context.Context, userID string) (*models.PortfolioSummary, error)
}

// HistoryFilter narrows the transaction history view.
type HistoryFilter struct {
	Types   []models.TransactionType // empty = all types
	AssetID string                   // empty = all assets
	Limit   int                      // 0 = no limit
}

// PriceUpdateFunc receives the full price snapshot on every feed tick.
type PriceUpdateFunc func(models.PriceSnapshot)

// PriceFeed delivers per-asset prices to subscribers. The simulator in this
// repository implements it; a production quote source must honor the same
// contract so ledger consumers are unaffected.
type PriceFeed interface {
	// Subscribe registers a callback, synchronously delivers the current
	// snapshot, and starts the feed if this is the first subscriber. The
	// returned function unsubscribes; the feed stops when no subscribers
	// remain.
	Subscribe(fn PriceUpdateFunc) (unsubscribe func())

	// CurrentPrice returns the latest price for an asset.
	CurrentPrice(assetID string) (models.AssetPrice, bool)

	// AllPrices returns a copy of the latest full snapshot.
	AllPrices() models.PriceSnapshot

	// AddAsset registers a new tracked asset at its base price.
	AddAsset(assetID string, basePrice decimal.Decimal)

	// History returns the retained price points for an asset, oldest first.
	History(assetID string) []models.PricePoint

	// Stop halts the ticker and drops all subscribers.
	Stop()
}
