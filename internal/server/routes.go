package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/ostapkoval/startrade/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Auth
	mux.HandleFunc("/api/auth/telegram", s.handleAuthTelegram)

	// Portfolio
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/portfolio/summary", s.handlePortfolioSummary)
	mux.HandleFunc("/api/portfolio/assets", s.handlePortfolioAssets)
	mux.HandleFunc("/api/portfolio/assets/", s.routePortfolioAssets)

	// Trading
	mux.HandleFunc("/api/trade/buy", s.handleBuy)
	mux.HandleFunc("/api/trade/sell", s.handleSell)
	mux.HandleFunc("/api/trade/exchange", s.handleExchange)

	// Wallet
	mux.HandleFunc("/api/wallet/deposit", s.handleDeposit)
	mux.HandleFunc("/api/wallet/withdraw", s.handleWithdraw)
	mux.HandleFunc("/api/wallet/transfer-to-cfd", s.handleTransferToCFD)
	mux.HandleFunc("/api/wallet/transfer-from-cfd", s.handleTransferFromCFD)

	// History
	mux.HandleFunc("/api/transactions", s.handleTransactions)

	// Market
	mux.HandleFunc("/api/assets", s.handleAssetCatalog)
	mux.HandleFunc("/api/prices", s.handlePrices)
	mux.HandleFunc("/api/prices/", s.routePrices)
}

// routePortfolioAssets dispatches /api/portfolio/assets/{id}/* paths.
func (s *Server) routePortfolioAssets(w http.ResponseWriter, r *http.Request) {
	assetID := PathParam(r, "/api/portfolio/assets/", "")
	if assetID == "" {
		WriteError(w, http.StatusBadRequest, "asset id is required in path")
		return
	}

	if r.URL.Path == "/api/portfolio/assets/"+assetID+"/pnl" {
		s.handleAssetPnL(w, r, assetID)
		return
	}

	WriteError(w, http.StatusNotFound, "Not found")
}

// routePrices dispatches /api/prices/{id}/* paths.
func (s *Server) routePrices(w http.ResponseWriter, r *http.Request) {
	assetID := PathParam(r, "/api/prices/", "")
	if assetID == "" {
		WriteError(w, http.StatusBadRequest, "asset id is required in path")
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/prices/"+assetID) {
	case "":
		s.handlePriceGet(w, r, assetID)
	case "/history":
		s.handlePriceHistory(w, r, assetID)
	case "/chart.png":
		s.handlePriceChart(w, r, assetID)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// handleHealth responds to GET/HEAD /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion responds to GET/HEAD /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
