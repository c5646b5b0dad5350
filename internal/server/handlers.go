package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
	"github.com/ostapkoval/startrade/internal/services/ledger"
	"github.com/ostapkoval/startrade/internal/services/pricefeed"
)

// resolveUser returns the authenticated user id, falling back to the shared
// demo user when demo access is enabled. Writes 401 and returns false
// otherwise.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.app.Config.Auth.AllowDemo {
		return common.ResolveUserID(r.Context()), true
	}
	if uc := common.UserContextFromContext(r.Context()); uc != nil && uc.UserID != "" {
		return uc.UserID, true
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, "Authentication required")
	return "", false
}

// writeLedgerError maps ledger failures to HTTP responses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		WriteErrorWithCode(w, http.StatusBadRequest, "Amount must be positive", "invalid_amount")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, "Insufficient cash balance", "insufficient_funds")
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, "Insufficient holdings", "insufficient_holdings")
	case errors.Is(err, ledger.ErrInsufficientCFDFunds):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, "Insufficient CFD balance", "insufficient_cfd_funds")
	case errors.Is(err, ledger.ErrPersistence):
		WriteError(w, http.StatusInternalServerError, "Failed to persist portfolio")
	default:
		WriteError(w, http.StatusBadRequest, err.Error())
	}
}

// --- Portfolio handlers ---

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	portfolio, err := s.app.Ledger.Portfolio(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading portfolio: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, portfolio)
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	summary, err := s.app.Ledger.Summary(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error building summary: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePortfolioAssets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	assets, err := s.app.Ledger.Assets(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing assets: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
	})
}

func (s *Server) handleAssetPnL(w http.ResponseWriter, r *http.Request, assetID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	pnl, err := s.app.Ledger.AssetPnL(r.Context(), userID, assetID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing PnL: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"asset_id": assetID,
		"pnl":      pnl,
	})
}

// --- Trading handlers ---

// tradePrice resolves the current feed price for an asset; prices are
// server-authoritative, clients never submit them.
func (s *Server) tradePrice(w http.ResponseWriter, assetID string) (decimal.Decimal, bool) {
	price, ok := s.app.PriceFeed.CurrentPrice(assetID)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Unknown asset: %s", assetID), "unknown_asset")
		return decimal.Decimal{}, false
	}
	return price.Price, true
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	var req struct {
		AssetID  string          `json:"asset_id"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	catalogAsset, ok := pricefeed.CatalogAssetByID(req.AssetID)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Unknown asset: %s", req.AssetID), "unknown_asset")
		return
	}
	price, ok := s.tradePrice(w, req.AssetID)
	if !ok {
		return
	}

	asset := models.AssetRef{
		ID:       catalogAsset.ID,
		Symbol:   catalogAsset.Symbol,
		Name:     catalogAsset.Name,
		Icon:     catalogAsset.Icon,
		Category: catalogAsset.Category,
	}
	if err := s.app.Ledger.Buy(r.Context(), userID, asset, req.Quantity, price); err != nil {
		writeLedgerError(w, err)
		return
	}

	s.writePortfolio(w, r, userID)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	var req struct {
		AssetID  string          `json:"asset_id"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	price, ok := s.tradePrice(w, req.AssetID)
	if !ok {
		return
	}

	if err := s.app.Ledger.Sell(r.Context(), userID, req.AssetID, req.Quantity, price); err != nil {
		writeLedgerError(w, err)
		return
	}

	s.writePortfolio(w, r, userID)
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	var req struct {
		FromAssetID string          `json:"from_asset_id"`
		ToAssetID   string          `json:"to_asset_id"`
		Quantity    decimal.Decimal `json:"quantity"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	toAsset, ok := pricefeed.CatalogAssetByID(req.ToAssetID)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Unknown asset: %s", req.ToAssetID), "unknown_asset")
		return
	}
	fromPrice, ok := s.tradePrice(w, req.FromAssetID)
	if !ok {
		return
	}
	toPrice, ok := s.tradePrice(w, req.ToAssetID)
	if !ok {
		return
	}

	to := models.AssetRef{
		ID:       toAsset.ID,
		Symbol:   toAsset.Symbol,
		Name:     toAsset.Name,
		Icon:     toAsset.Icon,
		Category: toAsset.Category,
	}
	if err := s.app.Ledger.Exchange(r.Context(), userID, req.FromAssetID, to, req.Quantity, fromPrice, toPrice); err != nil {
		writeLedgerError(w, err)
		return
	}

	s.writePortfolio(w, r, userID)
}

// --- Wallet handlers ---

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleWalletOp(w, r, s.app.Ledger.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleWalletOp(w, r, s.app.Ledger.Withdraw)
}

func (s *Server) handleTransferToCFD(w http.ResponseWriter, r *http.Request) {
	s.handleWalletOp(w, r, s.app.Ledger.TransferToCFD)
}

func (s *Server) handleTransferFromCFD(w http.ResponseWriter, r *http.Request) {
	s.handleWalletOp(w, r, s.app.Ledger.TransferFromCFD)
}

func (s *Server) handleWalletOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID string, amount decimal.Decimal) error) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := op(r.Context(), userID, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}

	s.writePortfolio(w, r, userID)
}

// writePortfolio responds with the post-operation portfolio state.
func (s *Server) writePortfolio(w http.ResponseWriter, r *http.Request, userID string) {
	portfolio, err := s.app.Ledger.Portfolio(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading portfolio: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, portfolio)
}

// --- History handlers ---

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	filter := interfaces.HistoryFilter{
		AssetID: r.URL.Query().Get("asset"),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.Types = append(filter.Types, models.TransactionType(strings.TrimSpace(t)))
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	transactions, err := s.app.Ledger.Transactions(r.Context(), userID, filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing transactions: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
	})
}

// --- Market handlers ---

func (s *Server) handleAssetCatalog(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets": pricefeed.Catalog,
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	prices := s.app.PriceFeed.AllPrices()

	if raw := r.URL.Query().Get("ids"); raw != "" {
		filtered := make(models.PriceSnapshot)
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if p, ok := prices[id]; ok {
				filtered[id] = p
			}
		}
		prices = filtered
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": prices,
	})
}

func (s *Server) handlePriceGet(w http.ResponseWriter, r *http.Request, assetID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	price, ok := s.app.PriceFeed.CurrentPrice(assetID)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Unknown asset: %s", assetID), "unknown_asset")
		return
	}

	WriteJSON(w, http.StatusOK, price)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request, assetID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if _, ok := s.app.PriceFeed.CurrentPrice(assetID); !ok {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Unknown asset: %s", assetID), "unknown_asset")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"asset_id": assetID,
		"points":   s.app.PriceFeed.History(assetID),
	})
}

func (s *Server) handlePriceChart(w http.ResponseWriter, r *http.Request, assetID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if _, ok := s.app.PriceFeed.CurrentPrice(assetID); !ok {
		WriteErrorWithCode(w, http.StatusNotFound, fmt.Sprintf("Unknown asset: %s", assetID), "unknown_asset")
		return
	}

	symbol := strings.ToUpper(assetID)
	if catalogAsset, ok := pricefeed.CatalogAssetByID(assetID); ok {
		symbol = catalogAsset.Symbol
	}

	png, err := pricefeed.RenderPriceChart(symbol, s.app.PriceFeed.History(assetID))
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Chart unavailable: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
