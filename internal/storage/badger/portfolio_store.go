package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

type portfolioStore struct {
	store  *Store
	logger *common.Logger
}

// NewPortfolioStore creates a PortfolioStore backed by BadgerHold.
func NewPortfolioStore(store *Store, logger *common.Logger) interfaces.PortfolioStore {
	return &portfolioStore{store: store, logger: logger}
}

func (s *portfolioStore) Get(_ context.Context, userID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := s.store.db.Get(userID, &portfolio)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio for user '%s': %w", userID, err)
	}
	return &portfolio, nil
}

func (s *portfolioStore) Save(_ context.Context, portfolio *models.Portfolio) error {
	if portfolio.UserID == "" {
		return fmt.Errorf("cannot save portfolio without a user id")
	}
	portfolio.UpdatedAt = time.Now()
	if portfolio.CreatedAt.IsZero() {
		portfolio.CreatedAt = portfolio.UpdatedAt
	}

	if err := s.store.db.Upsert(portfolio.UserID, portfolio); err != nil {
		return fmt.Errorf("failed to save portfolio for user '%s': %w", portfolio.UserID, err)
	}
	s.logger.Debug().Str("user_id", portfolio.UserID).Msg("Portfolio saved")
	return nil
}

func (s *portfolioStore) Delete(_ context.Context, userID string) error {
	err := s.store.db.Delete(userID, models.Portfolio{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete portfolio for user '%s': %w", userID, err)
	}
	s.logger.Debug().Str("user_id", userID).Msg("Portfolio deleted")
	return nil
}

func (s *portfolioStore) ListUsers(_ context.Context) ([]string, error) {
	var portfolios []models.Portfolio
	if err := s.store.db.Find(&portfolios, nil); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	ids := make([]string, len(portfolios))
	for i, p := range portfolios {
		ids[i] = p.UserID
	}
	return ids, nil
}

func (s *portfolioStore) Close() error {
	return s.store.Close()
}
