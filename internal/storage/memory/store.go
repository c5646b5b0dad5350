// Package memory implements an in-process portfolio store. Used by tests and
// the ephemeral demo mode; state does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

type portfolioStore struct {
	mu         sync.RWMutex
	portfolios map[string]*models.Portfolio
}

// NewPortfolioStore creates an empty in-memory PortfolioStore.
func NewPortfolioStore() interfaces.PortfolioStore {
	return &portfolioStore{portfolios: make(map[string]*models.Portfolio)}
}

func (s *portfolioStore) Get(_ context.Context, userID string) (*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[userID]
	if !ok {
		return nil, interfaces.ErrPortfolioNotFound
	}
	return p.Clone(), nil
}

func (s *portfolioStore) Save(_ context.Context, portfolio *models.Portfolio) error {
	if portfolio.UserID == "" {
		return fmt.Errorf("cannot save portfolio without a user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	portfolio.UpdatedAt = time.Now()
	if portfolio.CreatedAt.IsZero() {
		portfolio.CreatedAt = portfolio.UpdatedAt
	}
	s.portfolios[portfolio.UserID] = portfolio.Clone()
	return nil
}

func (s *portfolioStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.portfolios, userID)
	return nil
}

func (s *portfolioStore) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.portfolios))
	for id := range s.portfolios {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *portfolioStore) Close() error {
	return nil
}
