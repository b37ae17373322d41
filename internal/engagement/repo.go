package engagement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindLike returns the like, or nil when the user has not liked the product.
func (r *Repository) FindLike(ctx context.Context, userID, productID uuid.UUID) (*models.ProductLike, error) {
	var rows []models.ProductLike
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

// AddLike ignores an existing (user, product) row.
func (r *Repository) AddLike(ctx context.Context, like *models.ProductLike) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(like).Error
}

func (r *Repository) RemoveLike(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductLike{}, "id = ?", id).Error
}

func (r *Repository) CountLikes(ctx context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ProductLike{}).Where("product_id = ?", productID).Count(&n).Error
	return n, err
}

func (r *Repository) CreateComment(ctx context.Context, comment *models.ProductComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *Repository) FindComment(ctx context.Context, id uuid.UUID) (*models.ProductComment, error) {
	var comment models.ProductComment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *Repository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductComment{}, "id = ?", id).Error
}

// ListComments returns one page of a product's comments, newest first.
func (r *Repository) ListComments(ctx context.Context, scope func(*gorm.DB) *gorm.DB, productID uuid.UUID, params pagination.Params, cursor *pagination.Cursor) ([]models.ProductComment, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ProductComment{}).
		Scopes(scope).
		Where("product_comments.product_id = ?", productID)
	var rows []models.ProductComment
	if err := pagination.Apply(q, "product_comments", cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
