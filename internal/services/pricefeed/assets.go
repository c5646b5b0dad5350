package pricefeed

import (
	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/models"
)

// CatalogAsset describes one tradable asset with its base price anchor.
// The 24h change of the simulated feed is always computed against this
// anchor, never against a rolling window.
type CatalogAsset struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Icon      string          `json:"icon"`
	Category  models.Category `json:"category"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// Catalog lists the assets tracked by default.
var Catalog = []CatalogAsset{
	// Crypto
	{ID: "btc", Symbol: "BTC", Name: "Bitcoin", Icon: "₿", Category: models.CategoryCrypto, BasePrice: decimal.NewFromFloat(109008.18)},
	{ID: "eth", Symbol: "ETH", Name: "Ethereum", Icon: "Ξ", Category: models.CategoryCrypto, BasePrice: decimal.NewFromFloat(2620.19)},
	{ID: "ton", Symbol: "TON", Name: "Toncoin", Icon: "🔷", Category: models.CategoryCrypto, BasePrice: decimal.NewFromFloat(2.92)},
	{ID: "sol", Symbol: "SOL", Name: "Solana", Icon: "🌅", Category: models.CategoryCrypto, BasePrice: decimal.NewFromFloat(152.47)},

	// Stocks
	{ID: "aapl", Symbol: "AAPL", Name: "Apple Inc.", Icon: "🍎", Category: models.CategoryStocks, BasePrice: decimal.NewFromFloat(189.84)},
	{ID: "tsla", Symbol: "TSLA", Name: "Tesla Inc.", Icon: "🚗", Category: models.CategoryStocks, BasePrice: decimal.NewFromFloat(248.98)},
	{ID: "msft", Symbol: "MSFT", Name: "Microsoft", Icon: "🪟", Category: models.CategoryStocks, BasePrice: decimal.NewFromFloat(415.75)},
	{ID: "googl", Symbol: "GOOGL", Name: "Alphabet", Icon: "🔍", Category: models.CategoryStocks, BasePrice: decimal.NewFromFloat(172.48)},

	// Metals
	{ID: "gold", Symbol: "XAU", Name: "Gold", Icon: "🥇", Category: models.CategoryGold, BasePrice: decimal.NewFromFloat(2650.50)},
	{ID: "silver", Symbol: "XAG", Name: "Silver", Icon: "🥈", Category: models.CategoryGold, BasePrice: decimal.NewFromFloat(30.85)},
	{ID: "platinum", Symbol: "XPT", Name: "Platinum", Icon: "⬜", Category: models.CategoryGold, BasePrice: decimal.NewFromFloat(945.20)},
}

// CatalogAssetByID looks up a catalog entry.
func CatalogAssetByID(id string) (CatalogAsset, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return CatalogAsset{}, false
}
