package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/models"
)

// StartPriceBridge subscribes the ledger to the price feed: on every tick the
// latest snapshot is applied to each persisted portfolio so stored holdings
// track the simulated market.
func (a *App) StartPriceBridge() {
	if a.bridgeStop != nil {
		return
	}
	a.bridgeStop = a.PriceFeed.Subscribe(func(snapshot models.PriceSnapshot) {
		a.applyPrices(snapshot)
	})
	a.Logger.Info().Msg("Price bridge: started")
}

// StopPriceBridge unsubscribes from the feed. Safe to call when not started.
func (a *App) StopPriceBridge() {
	if a.bridgeStop == nil {
		return
	}
	a.bridgeStop()
	a.bridgeStop = nil
	a.Logger.Info().Msg("Price bridge: stopped")
}

func (a *App) applyPrices(snapshot models.PriceSnapshot) {
	start := time.Now()
	ctx := context.Background()

	prices := make(map[string]decimal.Decimal, len(snapshot))
	for id, p := range snapshot {
		prices[id] = p.Price
	}

	users, err := a.Storage.PortfolioStore().ListUsers(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Price bridge: user listing failed")
		return
	}
	if len(users) == 0 {
		return
	}

	updated := 0
	for _, userID := range users {
		if err := a.Ledger.UpdatePrices(ctx, userID, prices); err != nil {
			a.Logger.Warn().Err(err).Str("user", userID).Msg("Price bridge: update failed")
			continue
		}
		updated++
	}

	a.Logger.Trace().
		Int("users", updated).
		Int("assets", len(prices)).
		Dur("elapsed", time.Since(start)).
		Msg("Price bridge: snapshot applied")
}
