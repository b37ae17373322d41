package db_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

func TestUpdatedAtIsAlwaysServerTime(t *testing.T) {
	conn := dbtest.Open(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	product := dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5)

	fixed := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
	restore := db.Now
	db.Now = func() time.Time { return fixed }
	t.Cleanup(func() { db.Now = restore })

	forged := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	err := conn.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]any{
		"title":      "renamed",
		"updated_at": forged,
	}).Error
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	require.Equal(t, "renamed", reloaded.Title)
	require.True(t, reloaded.UpdatedAt.Equal(fixed), "updated_at=%s", reloaded.UpdatedAt)

	reloaded.Stock = 9
	reloaded.UpdatedAt = forged
	require.NoError(t, conn.Save(&reloaded).Error)

	var saved models.Product
	require.NoError(t, conn.First(&saved, "id = ?", product.ID).Error)
	require.Equal(t, 9, saved.Stock)
	require.True(t, saved.UpdatedAt.Equal(fixed), "updated_at=%s", saved.UpdatedAt)
}

func TestProductConstraintsRejectInvalidRows(t *testing.T) {
	conn := dbtest.Open(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	product := dbtest.SeedProduct(t, conn, seller.ID, "10.00", 5)

	err := db.TranslateError(conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", -1).Error)
	require.Error(t, err)
	require.Contains(t, err.Error(), "products_stock_check")

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	require.Equal(t, 5, reloaded.Stock)
}
