package products

import (
	"context"
	"testing"

	"github.com/angelmondragon/store-manager/pkg/db"
	"github.com/angelmondragon/store-manager/pkg/db/models"
	"github.com/angelmondragon/store-manager/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))

	created, err := repo.Create(ctx, &models.Product{Name: "Some item", SKU: "ABC-1", Price: decimal.RequireFromString("5.55")})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Some item", found.Name)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("5.55")))

	found.Name = "Renamed"
	_, err = repo.Update(ctx, found)
	require.NoError(t, err)
	found, err = repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Name)

	affected, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	affected, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, affected)

	_, err = repo.FindByID(ctx, created.ID)
	assert.True(t, db.IsNotFound(err))
}

func TestRepositoryDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	_, err := repo.Create(ctx, &models.Product{Name: "a", SKU: "DUP"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Product{Name: "b", SKU: "DUP"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryLookupProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	created, err := repo.Create(ctx, &models.Product{Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("2.50")})
	require.NoError(t, err)

	details, err := repo.LookupProduct(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "Widget", details.Name)
	assert.Equal(t, "W-1", details.SKU)
	assert.True(t, details.Price.Equal(decimal.RequireFromString("2.5")))

	details, err = repo.LookupProduct(ctx, created.ID+100)
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestRepositoryListPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	for _, sku := range []string{"A", "B", "C"} {
		_, err := repo.Create(ctx, &models.Product{Name: sku, SKU: sku})
		require.NoError(t, err)
	}

	rows, err := repo.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 3, "list fetches one buffered row")

	rows, err = repo.List(ctx, pagination.Params{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C", rows[0].SKU)
}
