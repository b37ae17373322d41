package provisioning_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/provisioning"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
)

func newTrigger(t *testing.T, conn *gorm.DB) provisioning.Trigger {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	trigger, err := provisioning.NewService(provisioning.ServiceParams{
		Outbox: outbox.NewService(outbox.NewRepository(conn), logg),
		Logger: logg,
	})
	require.NoError(t, err)
	return trigger
}

func createIdentity(t *testing.T, tx *gorm.DB, meta models.IdentityMetadata) models.Identity {
	t.Helper()
	identity := models.Identity{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Metadata:     datatypes.NewJSONType(meta),
	}
	require.NoError(t, tx.Create(&identity).Error)
	return identity
}

func TestOnIdentityCreatedDefaultsToBuyer(t *testing.T) {
	conn := dbtest.Open(t)
	trigger := newTrigger(t, conn)

	var result *provisioning.Result
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		identity := createIdentity(t, tx, models.IdentityMetadata{})
		var err error
		result, err = trigger.OnIdentityCreated(context.Background(), tx, identity)
		return err
	}))

	require.True(t, result.Created)
	require.Equal(t, enums.UserRoleBuyer, result.Profile.Role)
	require.Equal(t, provisioning.PlaceholderName, result.Profile.FullName)
	require.Nil(t, result.Seller)

	var stored models.Profile
	require.NoError(t, conn.First(&stored, "id = ?", result.Profile.ID).Error)
	require.Empty(t, stored.Wishlist)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventIdentityProvisioned, events[0].EventType)
}

func TestOnIdentityCreatedSellerSignupCreatesStore(t *testing.T) {
	conn := dbtest.Open(t)
	trigger := newTrigger(t, conn)

	var (
		identity models.Identity
		result   *provisioning.Result
	)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		identity = createIdentity(t, tx, models.IdentityMetadata{FullName: "Ada Lovelace", Role: "seller"})
		var err error
		result, err = trigger.OnIdentityCreated(context.Background(), tx, identity)
		return err
	}))

	var profile models.Profile
	require.NoError(t, conn.First(&profile, "id = ?", identity.ID).Error)
	require.Equal(t, enums.UserRoleSeller, profile.Role)
	require.Equal(t, "Ada Lovelace", profile.FullName)
	require.Equal(t, identity.Email, profile.Email)

	var seller models.Seller
	require.NoError(t, conn.First(&seller, "profile_id = ?", identity.ID).Error)
	require.Equal(t, "Ada Lovelace's Store", seller.StoreName)
	require.False(t, seller.Verified)
	require.NotNil(t, result.Seller)
}

func TestOnIdentityCreatedIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	trigger := newTrigger(t, conn)

	var identity models.Identity
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		identity = createIdentity(t, tx, models.IdentityMetadata{FullName: "Grace", Role: "seller", StoreName: "Compilers"})
		_, err := trigger.OnIdentityCreated(context.Background(), tx, identity)
		return err
	}))

	var again *provisioning.Result
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		again, err = trigger.OnIdentityCreated(context.Background(), tx, identity)
		return err
	}))
	require.False(t, again.Created)
	require.Equal(t, "Grace", again.Profile.FullName)
	require.NotNil(t, again.Seller)
	require.Equal(t, "Compilers", again.Seller.StoreName)

	var profiles, sellers, events int64
	require.NoError(t, conn.Model(&models.Profile{}).Where("id = ?", identity.ID).Count(&profiles).Error)
	require.NoError(t, conn.Model(&models.Seller{}).Count(&sellers).Error)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&events).Error)
	require.EqualValues(t, 1, profiles)
	require.EqualValues(t, 1, sellers)
	require.EqualValues(t, 1, events)
}

func TestOnIdentityCreatedRejectsUnknownRole(t *testing.T) {
	conn := dbtest.Open(t)
	trigger := newTrigger(t, conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		identity := createIdentity(t, tx, models.IdentityMetadata{Role: "admin"})
		_, err := trigger.OnIdentityCreated(context.Background(), tx, identity)
		return err
	})
	require.Error(t, err)

	var identities int64
	require.NoError(t, conn.Model(&models.Identity{}).Count(&identities).Error)
	require.Zero(t, identities)
}

func TestMetadataDefaults(t *testing.T) {
	role, err := provisioning.RoleFromMetadata(models.IdentityMetadata{Role: " Seller "})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleSeller, role)

	require.Equal(t, provisioning.PlaceholderName, provisioning.FullNameFromMetadata(models.IdentityMetadata{FullName: "  "}))
	require.Equal(t, "Bob's Store", provisioning.StoreNameFromMetadata(models.IdentityMetadata{}, "Bob"))
	require.Equal(t, "Shop", provisioning.StoreNameFromMetadata(models.IdentityMetadata{StoreName: " Shop "}, "Bob"))
}
