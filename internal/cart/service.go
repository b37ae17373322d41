package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

const constraintQuantity = "cart_items_quantity_check"

// ItemDTO is a cart line with its product snapshot.
type ItemDTO struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	ProductID uuid.UUID            `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	LineTotal string               `json:"line_total,omitempty"`
	Product   *products.ProductDTO `json:"product,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// CartDTO is the caller's cart.
type CartDTO struct {
	Items    []ItemDTO `json:"items"`
	Subtotal string    `json:"subtotal"`
}

type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,max=10000"`
}

type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,max=10000"`
}

// Service exposes cart operations.
type Service interface {
	Get(ctx context.Context, caller policy.Caller) (*CartDTO, error)
	Add(ctx context.Context, caller policy.Caller, input AddItemInput) (*ItemDTO, error)
	UpdateQuantity(ctx context.Context, caller policy.Caller, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Remove(ctx context.Context, caller policy.Caller, itemID uuid.UUID) error
	Clear(ctx context.Context, caller policy.Caller) error
}

type service struct {
	repo     CartRepository
	products productReader
	policies *policy.Set
}

func NewService(repo CartRepository, productRepo productReader, policies *policy.Set) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	return &service{repo: repo, products: productRepo, policies: policies}, nil
}

func (s *service) Get(ctx context.Context, caller policy.Caller) (*CartDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	items, err := s.repo.ListByUser(ctx, s.policies.Scope(policy.TableCartItems, caller), caller.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	out := &CartDTO{Items: make([]ItemDTO, 0, len(items))}
	subtotal := decimal.Zero
	for _, item := range items {
		dto := s.toDTO(caller, item)
		if dto.Product != nil {
			subtotal = subtotal.Add(money.Total(item.Product.Price, item.Quantity))
		}
		out.Items = append(out.Items, dto)
	}
	out.Subtotal = money.String(subtotal)
	return out, nil
}

// Add puts a product in the cart. Adding a product already present adds to
// its quantity instead of creating a second line.
func (s *service) Add(ctx context.Context, caller policy.Caller, input AddItemInput) (*ItemDTO, error) {
	if err := checkQuantity(input.Quantity); err != nil {
		return nil, err
	}
	item := models.CartItem{UserID: caller.ID, ProductID: input.ProductID, Quantity: input.Quantity}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableCartItems, policy.OpInsert, caller, item); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, product); err != nil {
		return nil, err
	}

	stored, err := s.repo.Upsert(ctx, &item)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	dto := s.toDTO(caller, *stored)
	return &dto, nil
}

func (s *service) UpdateQuantity(ctx context.Context, caller policy.Caller, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableCartItems, policy.OpUpdate, caller, item); err != nil {
		return nil, err
	}
	if err := checkQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuantity(ctx, itemID, input.Quantity); err != nil {
		return nil, db.TranslateError(err)
	}
	updated, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	dto := s.toDTO(caller, *updated)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, caller policy.Caller, itemID uuid.UUID) error {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableCartItems, policy.OpDelete, caller, item); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, itemID); err != nil {
		return db.TranslateError(err)
	}
	return nil
}

func (s *service) Clear(ctx context.Context, caller policy.Caller) error {
	if !caller.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if _, err := s.repo.DeleteByUser(ctx, caller.ID); err != nil {
		return db.TranslateError(err)
	}
	return nil
}

func checkQuantity(quantity int) error {
	if quantity <= 0 || quantity > money.MaxQuantity {
		return db.Violation(db.ConstraintDetails{Constraint: constraintQuantity, Table: "cart_items", Field: "quantity", Value: fmt.Sprint(quantity)})
	}
	return nil
}

// toDTO leaves out the product snapshot and line total when the product is no
// longer visible to caller. The line itself stays so it can be removed.
func (s *service) toDTO(caller policy.Caller, item models.CartItem) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		UserID:    item.UserID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Product != nil && s.policies.Allowed(policy.TableProducts, policy.OpSelect, caller, item.Product) {
		p := products.FromModel(*item.Product)
		dto.Product = &p
		dto.LineTotal = money.String(money.Total(item.Product.Price, item.Quantity))
	}
	return dto
}
