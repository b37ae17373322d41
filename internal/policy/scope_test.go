package policy_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

func TestScopeFiltersListings(t *testing.T) {
	conn := dbtest.Open(t)
	set := policy.NewMarketplace()

	owner := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	stranger := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)

	dbtest.SeedProduct(t, conn, owner.ID, "5.00", 1)
	hidden := dbtest.SeedProduct(t, conn, owner.ID, "6.00", 1)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)

	var strangerView []models.Product
	require.NoError(t, conn.Scopes(set.Scope(policy.TableProducts, policy.Caller{ID: stranger.ID})).Find(&strangerView).Error)
	require.Len(t, strangerView, 1)

	var ownerView []models.Product
	require.NoError(t, conn.Scopes(set.Scope(policy.TableProducts, policy.Caller{ID: owner.ID})).Find(&ownerView).Error)
	require.Len(t, ownerView, 2)
}

func TestScopeHidesOrdersFromThirdParties(t *testing.T) {
	conn := dbtest.Open(t)
	set := policy.NewMarketplace()

	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	other := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5)

	order := models.Order{
		BuyerID:    buyer.ID,
		SellerID:   seller.ID,
		ProductID:  product.ID,
		Quantity:   1,
		UnitPrice:  decimal.RequireFromString("10.00"),
		TotalPrice: decimal.RequireFromString("10.00"),
		Status:     enums.OrderStatusPending,
		ShippingAddress: datatypes.NewJSONType(types.ShippingAddress{
			Version: 1, RecipientName: "B", Line1: "1 St", City: "X", PostalCode: "1", Country: "US",
		}),
	}
	require.NoError(t, conn.Create(&order).Error)

	for _, tc := range []struct {
		caller uuid.UUID
		want   int
	}{
		{caller: buyer.ID, want: 1},
		{caller: seller.ID, want: 1},
		{caller: other.ID, want: 0},
		{caller: uuid.Nil, want: 0},
	} {
		var rows []models.Order
		require.NoError(t, conn.Scopes(set.Scope(policy.TableOrders, policy.Caller{ID: tc.caller})).Find(&rows).Error)
		require.Len(t, rows, tc.want)
	}
}

func TestScopeWithoutSelectPoliciesReturnsNothing(t *testing.T) {
	conn := dbtest.Open(t)
	set, err := policy.NewSet(nil)
	require.NoError(t, err)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	dbtest.SeedProduct(t, conn, seller.ID, "5.00", 1)

	var rows []models.Product
	require.NoError(t, conn.Scopes(set.Scope(policy.TableProducts, policy.Caller{ID: seller.ID})).Find(&rows).Error)
	require.Empty(t, rows)
}
