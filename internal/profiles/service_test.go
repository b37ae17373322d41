package profiles

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     NewRepository(conn),
		Policies: policy.NewMarketplace(),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:   logg,
	})
	require.NoError(t, err)
	return svc, conn
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestBecomeSellerAndBackToBuyer(t *testing.T) {
	svc, conn := newTestService(t)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	desc := "handmade"
	profile, err := svc.BecomeSeller(ctx, caller, BecomeSellerInput{StoreName: "  Crafts ", Description: &desc})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleSeller, profile.Role)
	require.NotNil(t, profile.Seller)
	require.Equal(t, "Crafts", profile.Seller.StoreName)
	require.EqualValues(t, 1, countEvents(t, conn, enums.EventSellerEnabled))

	_, err = svc.BecomeSeller(ctx, caller, BecomeSellerInput{StoreName: "again"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	require.Equal(t, StepUpdateRole, pkgerrors.Step(err))

	profile, err = svc.BackToBuyer(ctx, caller)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleBuyer, profile.Role)
	require.Nil(t, profile.Seller)

	var sellers int64
	require.NoError(t, conn.Model(&models.Seller{}).Where("profile_id = ?", buyer.ID).Count(&sellers).Error)
	require.Zero(t, sellers)
	require.EqualValues(t, 1, countEvents(t, conn, enums.EventSellerDisabled))
}

func TestBecomeSellerRollsBackRoleWhenSellerInsertFails(t *testing.T) {
	svc, conn := newTestService(t)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	// a stray store row makes the insert hit the unique profile_id constraint
	require.NoError(t, conn.Create(&models.Seller{ProfileID: buyer.ID, StoreName: "stray"}).Error)

	_, err := svc.BecomeSeller(context.Background(), policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}, BecomeSellerInput{StoreName: "Shop"})
	require.Error(t, err)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "got %v", err)
	require.Equal(t, StepCreateSeller, pkgerrors.Step(err))

	var stored models.Profile
	require.NoError(t, conn.First(&stored, "id = ?", buyer.ID).Error)
	require.Equal(t, enums.UserRoleBuyer, stored.Role, "role update must roll back with the failed insert")
	require.Zero(t, countEvents(t, conn, enums.EventSellerEnabled))
}

func TestBackToBuyerRejectsBuyer(t *testing.T) {
	svc, conn := newTestService(t)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	_, err := svc.BackToBuyer(context.Background(), policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	require.Equal(t, StepUpdateRole, pkgerrors.Step(err))
}

func TestUpdateMeAndReads(t *testing.T) {
	svc, conn := newTestService(t)
	me := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	other := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	caller := policy.Caller{ID: me.ID, Role: enums.UserRoleSeller}
	ctx := context.Background()

	name, bio := "Renamed", "  hello  "
	updated, err := svc.UpdateMe(ctx, caller, UpdateProfileInput{FullName: &name, Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.FullName)
	require.Equal(t, "hello", *updated.Bio)
	require.NotNil(t, updated.Seller, "seller variant carried on the profile")
	require.False(t, updated.UpdatedAt.Before(me.UpdatedAt))

	blank := "   "
	_, err = svc.UpdateMe(ctx, caller, UpdateProfileInput{FullName: &blank})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	got, err := svc.GetByID(ctx, policy.Caller{ID: other.ID, Role: enums.UserRoleBuyer}, me.ID)
	require.NoError(t, err)
	require.Equal(t, me.ID, got.ID)
	require.Nil(t, got.Seller.PaymentInfo)

	_, err = svc.GetByID(ctx, policy.Caller{}, me.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "anonymous reads look like missing rows")

	_, err = svc.GetMe(ctx, policy.Caller{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}
