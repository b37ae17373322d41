package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIDForUpdate locks the profile row for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := db.ForUpdate(tx.WithContext(ctx)).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindSeller returns the seller row for profileID, or nil when there is none.
func (r *Repository) FindSeller(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*models.Seller, error) {
	if tx == nil {
		tx = r.db
	}
	var rows []models.Seller
	if err := tx.WithContext(ctx).Where("profile_id = ?", profileID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *Repository) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if tx == nil {
		tx = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) CreateSeller(ctx context.Context, tx *gorm.DB, seller *models.Seller) error {
	return tx.WithContext(ctx).Create(seller).Error
}

func (r *Repository) DeleteSeller(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Delete(&models.Seller{}, "id = ?", id).Error
}

// SetAvatarURL points the profile at an uploaded avatar, or clears it when url is nil.
func (r *Repository) SetAvatarURL(ctx context.Context, id uuid.UUID, url *string) error {
	return r.Update(ctx, nil, id, map[string]any{"avatar_url": url})
}

// ResolveRole reads the stored role for id. Missing profiles come back as NOT_FOUND.
func (r *Repository) ResolveRole(ctx context.Context, id uuid.UUID) (enums.UserRole, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Select("id", "role").First(&profile, "id = ?", id).Error; err != nil {
		return "", db.TranslateError(err)
	}
	return profile.Role, nil
}
