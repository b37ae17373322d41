package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WishlistEntry links a profile to a saved product.
type WishlistEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:wishlist_user_id_product_id_key" json:"user_id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:wishlist_user_id_product_id_key" json:"product_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WishlistEntry) TableName() string { return "wishlist" }

func (w *WishlistEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

type ProductLike struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:product_likes_user_id_product_id_key" json:"user_id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_likes_user_id_product_id_key" json:"product_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ProductLike) TableName() string { return "product_likes" }

func (l *ProductLike) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// ProductComment is append-only.
type ProductComment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_product_comments_product_id" json:"product_id"`
	Content   string    `gorm:"column:content;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ProductComment) TableName() string { return "product_comments" }

func (c *ProductComment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
