package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetPrice is one entry in a price feed snapshot.
type AssetPrice struct {
	ID          string          `json:"id"`
	Price       decimal.Decimal `json:"price"`
	Change24h   decimal.Decimal `json:"change_24h"` // percent vs. the fixed base anchor
	LastUpdated time.Time       `json:"last_updated"`
}

// PricePoint is a timestamped sample retained in the rolling price history.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// PriceSnapshot maps asset id to its latest price. Feeds always deliver the
// full snapshot, never deltas.
type PriceSnapshot map[string]AssetPrice
