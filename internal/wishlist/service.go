package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	DB           txRunner
	WishlistRepo *Repository
	Policies     *policy.Set
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, caller policy.Caller, params pagination.Params) (pagination.Page[WishlistItemDTO], error)
	GetWishlistIDs(ctx context.Context, caller policy.Caller) (WishlistIDsDTO, error)
	Toggle(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*ToggleResult, error)
	Status(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*StatusDTO, error)
}

type service struct {
	db           txRunner
	wishlistRepo *Repository
	policies     *policy.Set
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.WishlistRepo == nil {
		return nil, fmt.Errorf("wishlist repo is required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	return &service{
		db:           params.DB,
		wishlistRepo: params.WishlistRepo,
		policies:     params.Policies,
	}, nil
}

// GetWishlist returns the caller's wishlisted products that are still visible.
func (s *service) GetWishlist(ctx context.Context, caller policy.Caller, params pagination.Params) (pagination.Page[WishlistItemDTO], error) {
	if !caller.Authenticated() {
		return pagination.Page[WishlistItemDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[WishlistItemDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	entries, byID, err := s.wishlistRepo.ListItems(ctx, caller.ID, cursor, params.Limit,
		s.policies.Scope(policy.TableWishlist, caller),
		s.policies.Scope(policy.TableProducts, caller),
	)
	if err != nil {
		return pagination.Page[WishlistItemDTO]{}, db.TranslateError(err)
	}
	items := make([]WishlistItemDTO, 0, len(entries))
	for _, entry := range entries {
		product, ok := byID[entry.ProductID]
		if !ok {
			continue
		}
		items = append(items, WishlistItemDTO{ID: entry.ID, Product: products.FromModel(product), CreatedAt: entry.CreatedAt})
	}
	return pagination.Build(items, params.Limit, func(item WishlistItemDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	}), nil
}

// GetWishlistIDs returns all wishlisted product IDs for the caller.
func (s *service) GetWishlistIDs(ctx context.Context, caller policy.Caller) (WishlistIDsDTO, error) {
	if !caller.Authenticated() {
		return WishlistIDsDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ids, err := s.wishlistRepo.ListItemIDs(ctx, caller.ID)
	if err != nil {
		return WishlistIDsDTO{}, db.TranslateError(err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return WishlistIDsDTO{ProductIDs: ids}, nil
}

// Toggle adds the product when absent and removes it when present. The entry
// table and the profile's wishlist array change in the same transaction.
func (s *service) Toggle(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*ToggleResult, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
			WithDetails(map[string]any{"field": "product_id"})
	}

	var result *ToggleResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.wishlistRepo.WithTx(tx)
		profile, err := repo.LockProfile(ctx, caller.ID)
		if err != nil {
			return db.TranslateError(err)
		}
		if err := s.policies.AuthorizeWrite(ctx, policy.TableProfiles, policy.OpUpdate, caller, profile); err != nil {
			return err
		}

		entry, err := repo.FindItem(ctx, caller.ID, productID)
		if err != nil {
			return db.TranslateError(err)
		}

		wishlisted := false
		if entry != nil {
			if err := s.policies.AuthorizeWrite(ctx, policy.TableWishlist, policy.OpDelete, caller, entry); err != nil {
				return err
			}
			if _, err := repo.RemoveItem(ctx, caller.ID, productID); err != nil {
				return db.TranslateError(err)
			}
		} else {
			product, err := repo.FindProduct(ctx, productID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound) && profile.HasWishlisted(productID):
				// the product is gone; only the array still mentions it
			case err != nil:
				return db.TranslateError(err)
			default:
				if err := s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, product); err != nil {
					return err
				}
				newEntry := models.WishlistEntry{UserID: caller.ID, ProductID: productID}
				if err := s.policies.AuthorizeWrite(ctx, policy.TableWishlist, policy.OpInsert, caller, newEntry); err != nil {
					return err
				}
				if _, err := repo.AddItem(ctx, &newEntry); err != nil {
					return db.TranslateError(err)
				}
				wishlisted = true
			}
		}

		ids := withMembership(profile.Wishlist, productID, wishlisted)
		if err := repo.SetProfileWishlist(ctx, caller.ID, ids); err != nil {
			return db.TranslateError(err)
		}
		result = &ToggleResult{ProductID: productID, Wishlisted: wishlisted, Wishlist: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Status(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*StatusDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	entry, err := s.wishlistRepo.FindItem(ctx, caller.ID, productID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return &StatusDTO{ProductID: productID, Wishlisted: entry != nil}, nil
}

// withMembership returns ids with productID present or absent exactly once,
// preserving the order of the other elements.
func withMembership(ids []uuid.UUID, productID uuid.UUID, present bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids)+1)
	for _, id := range ids {
		if id != productID {
			out = append(out, id)
		}
	}
	if present {
		out = append(out, productID)
	}
	return out
}
