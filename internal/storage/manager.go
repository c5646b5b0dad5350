// Package storage provides portfolio persistence with pluggable backends.
package storage

import (
	"fmt"

	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/storage/badger"
	"github.com/ostapkoval/startrade/internal/storage/memory"
)

// Backend type constants.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Manager owns the configured portfolio store.
type Manager struct {
	portfolios interfaces.PortfolioStore
}

// NewManager creates a storage manager for the configured backend.
// Supported backends: "badger" (default), "memory".
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendBadger
	}

	switch backend {
	case BackendBadger:
		store, err := badger.NewStore(logger, config.Storage.Path)
		if err != nil {
			return nil, err
		}
		return &Manager{portfolios: badger.NewPortfolioStore(store, logger)}, nil

	case BackendMemory:
		return &Manager{portfolios: memory.NewPortfolioStore()}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: badger, memory)", backend)
	}
}

// PortfolioStore returns the portfolio store.
func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolios
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.portfolios.Close()
}
