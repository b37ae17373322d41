package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// SeedProfile inserts an identity and its profile with the given role.
func SeedProfile(t testing.TB, conn *gorm.DB, role enums.UserRole) models.Profile {
	t.Helper()
	identity := models.Identity{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Metadata:     datatypes.NewJSONType(models.IdentityMetadata{}),
	}
	if err := conn.Create(&identity).Error; err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	profile := models.Profile{
		ID:       identity.ID,
		FullName: "Test " + string(role),
		Role:     role,
		Email:    identity.Email,
		Wishlist: datatypes.JSONSlice[uuid.UUID]{},
	}
	if err := conn.Create(&profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if role == enums.UserRoleSeller {
		seller := models.Seller{ProfileID: profile.ID, StoreName: profile.FullName + "'s Store"}
		if err := conn.Create(&seller).Error; err != nil {
			t.Fatalf("seed seller: %v", err)
		}
	}
	return profile
}

// SeedProduct inserts an active product owned by sellerID.
func SeedProduct(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		SellerID:    sellerID,
		Title:       "Product " + uuid.NewString()[:8],
		Description: "seeded",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Category:    "general",
		IsActive:    true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}
