package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ps := NewPortfolioStore()
	ctx := context.Background()

	_, err := ps.Get(ctx, "u1")
	assert.ErrorIs(t, err, interfaces.ErrPortfolioNotFound)

	p := &models.Portfolio{
		UserID:      "u1",
		CashBalance: decimal.NewFromInt(1000),
		Assets:      []models.Holding{{ID: "ton", Quantity: decimal.NewFromInt(3)}},
	}
	require.NoError(t, ps.Save(ctx, p))

	got, err := ps.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.CashBalance.Equal(decimal.NewFromInt(1000)))

	// The store must hand out copies: mutating a read result cannot change
	// persisted state.
	got.Assets[0].Quantity = decimal.NewFromInt(999)
	again, err := ps.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, again.Assets[0].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestMemoryStoreDeleteAndList(t *testing.T) {
	ps := NewPortfolioStore()
	ctx := context.Background()

	require.NoError(t, ps.Save(ctx, &models.Portfolio{UserID: "a"}))
	require.NoError(t, ps.Save(ctx, &models.Portfolio{UserID: "b"}))

	users, err := ps.ListUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, users)

	require.NoError(t, ps.Delete(ctx, "a"))
	users, err = ps.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, users)
}
