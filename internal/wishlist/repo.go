package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// AddItem inserts a wishlist entry and ignores duplicates. It reports whether a
// row was written.
func (r *Repository) AddItem(ctx context.Context, entry *models.WishlistEntry) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(entry)
	return res.RowsAffected == 1, res.Error
}

// RemoveItem deletes the user-product entry if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistEntry{})
	return res.RowsAffected > 0, res.Error
}

// FindItem returns the entry, or nil when the product is not wishlisted.
func (r *Repository) FindItem(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistEntry, error) {
	var rows []models.WishlistEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListItems returns one page of the user's entries joined with their products,
// newest first. scopes restrict both tables to what the caller can see.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]models.WishlistEntry, map[uuid.UUID]models.Product, error) {
	q := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Select("wishlist.*").
		Joins("JOIN products ON products.id = wishlist.product_id").
		Scopes(scopes...).
		Where("wishlist.user_id = ?", userID)

	var entries []models.WishlistEntry
	if err := pagination.Apply(q, "wishlist", cursor, limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return entries, map[uuid.UUID]models.Product{}, nil
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ProductID)
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return entries, byID, nil
}

// ListItemIDs returns every product id the user has wishlisted, newest first.
func (r *Repository) ListItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockProfile loads the owner's profile with a row lock on postgres.
func (r *Repository) LockProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&profile, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetProfileWishlist overwrites the denormalized array on the profile.
func (r *Repository) SetProfileWishlist(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", userID).
		Update("wishlist", datatypes.JSONSlice[uuid.UUID](ids)).Error
}
