package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/fault"
)

func fixedStore() *store.Store {
	return store.New(store.Options{
		Faults: fault.Never(),
		Now:    func() time.Time { return store.SeedEpoch.AddDate(0, 2, 0) },
	})
}

func TestUserRepository(t *testing.T) {
	s := fixedStore()
	repo := repositories.NewUserRepository(s)
	ctx := context.Background()

	u, err := repo.FindByEmail(ctx, "  BOB@example.com ")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 2, u.ID)

	missing, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	admins, err := repo.All(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "alice@example.com", admins[0].Email)

	touched, err := repo.Touch(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, touched.LastLoginAt)
	assert.True(t, touched.LastLoginAt.Equal(s.Now()))
}

func TestUserRepositoryDroppedIsEmpty(t *testing.T) {
	repo := repositories.NewUserRepository(store.New(store.Options{Faults: fault.Always()}))

	users, err := repo.All(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestProductPages(t *testing.T) {
	repo := repositories.NewProductRepository(fixedStore())
	ctx := context.Background()

	first, err := repo.Page(ctx, 0, 3, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, 3, *first.NextCursor)

	last, err := repo.Page(ctx, 6, 3, "")
	require.NoError(t, err)
	assert.Len(t, last.Items, 2)
	assert.False(t, last.HasMore)
	assert.Nil(t, last.NextCursor)

	exact, err := repo.Page(ctx, 0, 8, "")
	require.NoError(t, err)
	assert.Len(t, exact.Items, 8)
	assert.False(t, exact.HasMore)

	none, err := repo.Page(ctx, 0, 10, repositories.UncategorizedFilter)
	require.NoError(t, err)
	require.Len(t, none.Items, 2)
	assert.Equal(t, "ST-006", none.Items[0].SKU)

	electronics, err := repo.Page(ctx, 0, 10, "electronics")
	require.NoError(t, err)
	assert.Len(t, electronics.Items, 3)
}

func TestOrderList(t *testing.T) {
	repo := repositories.NewOrderRepository(fixedStore())
	ctx := context.Background()

	all, err := repo.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "1004", all[0].ID)

	bob, err := repo.List(ctx, "", "2")
	require.NoError(t, err)
	require.Len(t, bob, 2)
	assert.Equal(t, "1003", bob[0].ID)

	shipped, err := repo.List(ctx, "shipped", "")
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, "1002", shipped[0].ID)
}
