package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), products.NewRepository(conn), policy.NewMarketplace())
	require.NoError(t, err)
	return svc, conn
}

func TestAddSameProductAccumulatesQuantity(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	first, err := svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	second, err := svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 3, second.Quantity)
	require.Equal(t, "30.00", second.LineTotal)

	var rows int64
	require.NoError(t, conn.Model(&models.CartItem{}).Where("user_id = ?", buyer.ID).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	cart, err := svc.Get(ctx, caller)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "30.00", cart.Subtotal)
}

func TestAddRejectsBadQuantityAndHiddenProduct(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	_, err := svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 0})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "inactive products are invisible to buyers, got %v", err)

	_, err = svc.Add(ctx, caller, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestItemsAreOwnerOnly(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	other := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "2.50", 5)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	stranger := policy.Caller{ID: other.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	item, err := svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, stranger, item.ID, UpdateItemInput{Quantity: 9})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	require.True(t, pkgerrors.Is(svc.Remove(ctx, stranger, item.ID), pkgerrors.CodeNotFound))

	strangerCart, err := svc.Get(ctx, stranger)
	require.NoError(t, err)
	require.Empty(t, strangerCart.Items)

	updated, err := svc.UpdateQuantity(ctx, caller, item.ID, UpdateItemInput{Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, 4, updated.Quantity)
	require.Equal(t, "10.00", updated.LineTotal)

	require.NoError(t, svc.Remove(ctx, caller, item.ID))
	_, err = svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, caller))

	cart, err := svc.Get(ctx, caller)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	require.Equal(t, "0.00", cart.Subtotal)
}

func TestGetOmitsProductsHiddenAfterAdd(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	visible := dbtest.SeedProduct(t, conn, seller.ID, "4.00", 5)
	retired := dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	_, err := svc.Add(ctx, caller, AddItemInput{ProductID: visible.ID, Quantity: 1})
	require.NoError(t, err)
	hidden, err := svc.Add(ctx, caller, AddItemInput{ProductID: retired.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	cart, err := svc.Get(ctx, caller)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	require.Equal(t, "4.00", cart.Subtotal)
	for _, item := range cart.Items {
		if item.ProductID != retired.ID {
			require.NotNil(t, item.Product)
			continue
		}
		require.Nil(t, item.Product)
		require.Empty(t, item.LineTotal)
	}

	updated, err := svc.UpdateQuantity(ctx, caller, hidden.ID, UpdateItemInput{Quantity: 3})
	require.NoError(t, err)
	require.Nil(t, updated.Product)
	require.Empty(t, updated.LineTotal)

	require.NoError(t, svc.Remove(ctx, caller, hidden.ID))
}

func TestQuantityUpperBound(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "1.00", 5)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	_, err := svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: money.MaxQuantity + 1})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	item, err := svc.Add(ctx, caller, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.UpdateQuantity(ctx, caller, item.ID, UpdateItemInput{Quantity: 1 << 40})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
}
