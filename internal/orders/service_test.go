package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     NewRepository(conn),
		Products: products.NewRepository(conn),
		Policies: policy.NewMarketplace(),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:   logg,
	})
	require.NoError(t, err)
	return svc, conn
}

func address() types.ShippingAddress {
	return types.ShippingAddress{
		RecipientName: " Ada Buyer ",
		Line1:         "1 Main St",
		City:          "Springfield",
		PostalCode:    "12345",
		Country:       "us",
	}
}

type fixture struct {
	seller  policy.Caller
	buyer   policy.Caller
	other   policy.Caller
	product models.Product
}

func seed(t *testing.T, conn *gorm.DB) fixture {
	t.Helper()
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	other := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	return fixture{
		seller:  policy.Caller{ID: seller.ID, Role: enums.UserRoleSeller},
		buyer:   policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer},
		other:   policy.Caller{ID: other.ID, Role: enums.UserRoleBuyer},
		product: dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5),
	}
}

func TestCreateSnapshotsPriceAndEmitsEvent(t *testing.T) {
	svc, conn := newTestService(t)
	f := seed(t, conn)

	order, err := svc.Create(context.Background(), f.buyer, CreateOrderInput{
		ProductID:       f.product.ID,
		Quantity:        3,
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	require.Equal(t, "10.00", order.UnitPrice)
	require.Equal(t, "30.00", order.TotalPrice)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, f.seller.ID, order.SellerID)
	require.Equal(t, "US", order.ShippingAddress.Country)
	require.Equal(t, "Ada Buyer", order.ShippingAddress.RecipientName)
	require.Equal(t, types.ShippingAddressVersion, order.ShippingAddress.Version)
	require.ElementsMatch(t, []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}, order.NextStatuses)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderCreated).Count(&events).Error)
	require.EqualValues(t, 1, events)

	var stock int
	require.NoError(t, conn.Model(&models.Product{}).Select("stock").Where("id = ?", f.product.ID).Scan(&stock).Error)
	require.Equal(t, 5, stock)
}

func TestCreateRejectsInconsistentInput(t *testing.T) {
	svc, conn := newTestService(t)
	f := seed(t, conn)
	wrongTotal := decimal.RequireFromString("25.00")
	staleUnit := decimal.RequireFromString("9.99")
	badAddress := address()
	badAddress.Country = "United States"

	cases := []struct {
		name  string
		input CreateOrderInput
		code  pkgerrors.Code
	}{
		{"zero quantity", CreateOrderInput{ProductID: f.product.ID, Quantity: 0, ShippingAddress: address()}, pkgerrors.CodeValidation},
		{"total mismatch", CreateOrderInput{ProductID: f.product.ID, Quantity: 2, TotalPrice: &wrongTotal, ShippingAddress: address()}, pkgerrors.CodeValidation},
		{"stale unit price", CreateOrderInput{ProductID: f.product.ID, Quantity: 2, UnitPrice: &staleUnit, ShippingAddress: address()}, pkgerrors.CodeConflict},
		{"bad address", CreateOrderInput{ProductID: f.product.ID, Quantity: 1, ShippingAddress: badAddress}, pkgerrors.CodeValidation},
		{"unknown product", CreateOrderInput{ProductID: uuid.New(), Quantity: 1, ShippingAddress: address()}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), f.buyer, tc.input)
			require.True(t, pkgerrors.Is(err, tc.code), "got %v", err)
		})
	}

	var rows int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&rows).Error)
	require.Zero(t, rows)

	_, err := svc.Create(context.Background(), policy.Caller{}, CreateOrderInput{ProductID: f.product.ID, Quantity: 1, ShippingAddress: address()})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestTotalViolationCarriesConstraintDetails(t *testing.T) {
	err := CheckTotal(decimal.RequireFromString("10.00"), 2, decimal.RequireFromString("20.01"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, ConstraintTotalPrice, details["constraint"])
	require.Equal(t, "total_price", details["field"])
	require.Equal(t, "20.01", details["value"])

	require.NoError(t, CheckTotal(decimal.RequireFromString("0.10"), 3, decimal.RequireFromString("0.3")))
}

func TestBuildRejectsOutOfRangeAmounts(t *testing.T) {
	product := models.Product{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Price:    decimal.RequireFromString("9999999.99"),
	}
	_, err := Build(uuid.New(), product, money.MaxQuantity+1, address(), nil)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = Build(uuid.New(), product, 5000, address(), nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, ConstraintTotalPrice, typed.Details().(map[string]any)["constraint"])
}

func TestOrdersAreVisibleOnlyToParties(t *testing.T) {
	svc, conn := newTestService(t)
	f := seed(t, conn)
	ctx := context.Background()

	order, err := svc.Create(ctx, f.buyer, CreateOrderInput{ProductID: f.product.ID, Quantity: 1, ShippingAddress: address()})
	require.NoError(t, err)

	_, err = svc.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, f.seller, order.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, f.other, order.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, f.other, uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	page, err := svc.ListMine(ctx, f.other, ListInput{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	page, err = svc.ListMine(ctx, f.seller, ListInput{As: PartySeller})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = svc.ListMine(ctx, f.seller, ListInput{As: PartyBuyer})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	_, err = svc.ListMine(ctx, f.seller, ListInput{As: "admin"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestListMinePaginatesAndFiltersStatus(t *testing.T) {
	svc, conn := newTestService(t)
	f := seed(t, conn)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		order, err := svc.Create(ctx, f.buyer, CreateOrderInput{ProductID: f.product.ID, Quantity: i + 1, ShippingAddress: address()})
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}
	_, err := svc.UpdateStatus(ctx, f.seller, ids[0], UpdateStatusInput{Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)

	first, err := svc.ListMine(ctx, f.buyer, ListInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListMine(ctx, f.buyer, ListInput{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.NextCursor)

	confirmed := enums.OrderStatusConfirmed
	filtered, err := svc.ListMine(ctx, f.buyer, ListInput{Status: &confirmed})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, ids[0], filtered.Items[0].ID)
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	svc, conn := newTestService(t)
	f := seed(t, conn)
	ctx := context.Background()

	order, err := svc.Create(ctx, f.buyer, CreateOrderInput{ProductID: f.product.ID, Quantity: 1, ShippingAddress: address()})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, f.buyer, order.ID, UpdateStatusInput{Status: enums.OrderStatusConfirmed})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden), "buyer sees the order but cannot move it, got %v", err)
	_, err = svc.UpdateStatus(ctx, f.other, order.ID, UpdateStatusInput{Status: enums.OrderStatusConfirmed})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.UpdateStatus(ctx, f.seller, order.ID, UpdateStatusInput{Status: enums.OrderStatusShipped})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	for _, next := range []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		updated, err := svc.UpdateStatus(ctx, f.seller, order.ID, UpdateStatusInput{Status: next})
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
	}

	_, err = svc.UpdateStatus(ctx, f.seller, order.ID, UpdateStatusInput{Status: enums.OrderStatusCancelled})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	_, err = svc.UpdateStatus(ctx, f.seller, order.ID, UpdateStatusInput{Status: "lost"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderStatusChanged).Count(&events).Error)
	require.EqualValues(t, 3, events)
}
