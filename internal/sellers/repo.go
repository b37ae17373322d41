package sellers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByProfileID(ctx context.Context, profileID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// List returns one page of the directory, newest stores first. scope restricts
// the rows to what the caller may see.
func (r *Repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, params ListParams, cursor *pagination.Cursor) ([]models.Seller, error) {
	q := r.db.WithContext(ctx).Model(&models.Seller{}).Scopes(scope)
	if term := strings.TrimSpace(params.Query); term != "" {
		q = q.Where("LOWER(sellers.store_name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if params.Verified != nil {
		q = q.Where("sellers.verified = ?", *params.Verified)
	}
	var rows []models.Seller
	if err := pagination.Apply(q, "sellers", cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the given columns on the seller row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Seller{}).Where("id = ?", id).Updates(updates).Error
}
