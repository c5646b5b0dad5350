// Package interfaces defines service contracts for Startrade
package interfaces

import (
	"context"
	"errors"

	"github.com/ostapkoval/startrade/internal/models"
)

// ErrPortfolioNotFound is returned by PortfolioStore.Get when no portfolio
// has been persisted for the user yet.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// PortfolioStore persists the full portfolio blob per user. Writes replace
// the whole record; there are no partial updates. Last write wins when
// multiple instances share a user scope.
type PortfolioStore interface {
	// Get retrieves the portfolio for a user, or ErrPortfolioNotFound.
	Get(ctx context.Context, userID string) (*models.Portfolio, error)

	// Save persists the portfolio in full.
	Save(ctx context.Context, portfolio *models.Portfolio) error

	// Delete removes the portfolio for a user. Deleting an absent record is
	// not an error.
	Delete(ctx context.Context, userID string) error

	// ListUsers returns the user ids with a persisted portfolio.
	ListUsers(ctx context.Context) ([]string, error)

	Close() error
}

// StorageManager owns the configured storage backend.
type StorageManager interface {
	PortfolioStore() PortfolioStore
	Close() error
}
