package ledger

import (
	"context"
	"sort"

	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

// Transactions returns the history newest-first, optionally filtered by type
// and asset. The result is a fresh copy on every call, never a live view.
func (s *Service) Transactions(ctx context.Context, userID string, filter interfaces.HistoryFilter) ([]models.TransactionView, error) {
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Reverse insertion order first, then a stable sort by timestamp. Rapid
	// successive operations can share a timestamp; the stable sort keeps the
	// later insertion first so ordering stays non-increasing.
	entries := make([]models.Transaction, len(p.Transactions))
	for i, tx := range p.Transactions {
		entries[len(p.Transactions)-1-i] = tx
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	views := make([]models.TransactionView, 0, len(entries))
	for _, tx := range entries {
		if !matchesFilter(tx, filter) {
			continue
		}
		views = append(views, models.TransactionView{
			Transaction: tx,
			Label:       Label(tx.Type),
		})
		if filter.Limit > 0 && len(views) == filter.Limit {
			break
		}
	}

	return views, nil
}

func matchesFilter(tx models.Transaction, filter interfaces.HistoryFilter) bool {
	if filter.AssetID != "" && tx.AssetID != filter.AssetID {
		return false
	}
	if len(filter.Types) == 0 {
		return true
	}
	for _, t := range filter.Types {
		if tx.Type == t {
			return true
		}
	}
	return false
}

// Label returns the display name for a transaction type.
func Label(t models.TransactionType) string {
	switch t {
	case models.TxBuy:
		return "Purchase"
	case models.TxSell:
		return "Sale"
	case models.TxDeposit:
		return "Deposit"
	case models.TxWithdraw:
		return "Withdrawal"
	case models.TxTransferToCFD:
		return "Transfer to CFD"
	case models.TxTransferFromCFD:
		return "Transfer from CFD"
	default:
		return string(t)
	}
}
