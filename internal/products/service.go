package products

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

const (
	constraintPrice = "products_price_check"
	constraintStock = "products_stock_check"
)

// Service exposes product operations, each evaluated against the policy set.
type Service interface {
	ListPublic(ctx context.Context, caller policy.Caller, input ListInput) (pagination.Page[ProductDTO], error)
	ListMine(ctx context.Context, caller policy.Caller, input ListInput) (pagination.Page[ProductDTO], error)
	Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, caller policy.Caller, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, caller policy.Caller, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, caller policy.Caller, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	policies *policy.Set
}

// NewService builds the product service.
func NewService(repo *Repository, policies *policy.Set) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	return &service{repo: repo, policies: policies}, nil
}

// ListPublic returns active products only, even for their owner.
func (s *service) ListPublic(ctx context.Context, caller policy.Caller, input ListInput) (pagination.Page[ProductDTO], error) {
	return s.list(ctx, caller, input, true)
}

// ListMine returns the caller's own products including inactive ones.
func (s *service) ListMine(ctx context.Context, caller policy.Caller, input ListInput) (pagination.Page[ProductDTO], error) {
	if !caller.Authenticated() {
		return pagination.Page[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id := caller.ID
	input.Filters.SellerID = &id
	return s.list(ctx, caller, input, false)
}

func (s *service) list(ctx context.Context, caller policy.Caller, input ListInput, onlyActive bool) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, s.policies.Scope(policy.TableProducts, caller), input, onlyActive, cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, db.TranslateError(err)
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	return pagination.Build(dtos, input.Pagination.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (s *service) Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, caller policy.Caller, input CreateProductInput) (*ProductDTO, error) {
	product := models.Product{
		SellerID:    caller.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Stock:       input.Stock,
		Category:    strings.TrimSpace(input.Category),
		ImageURL:    input.ImageURL,
		VideoURL:    input.VideoURL,
		IsActive:    true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProducts, policy.OpInsert, caller, product); err != nil {
		return nil, err
	}
	if product.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required").WithDetails(map[string]any{"field": "title"})
	}
	if product.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required").WithDetails(map[string]any{"field": "category"})
	}
	if err := checkPrice(product.Price); err != nil {
		return nil, err
	}
	if err := checkStock(product.Stock); err != nil {
		return nil, err
	}
	product.Price = money.Normalize(product.Price)

	if err := s.repo.Create(ctx, &product); err != nil {
		return nil, db.TranslateError(err)
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, caller policy.Caller, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProducts, policy.OpUpdate, caller, product); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty").WithDetails(map[string]any{"field": "title"})
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if err := checkPrice(*input.Price); err != nil {
			return nil, err
		}
		updates["price"] = money.Normalize(*input.Price)
	}
	if input.Stock != nil {
		if err := checkStock(*input.Stock); err != nil {
			return nil, err
		}
		updates["stock"] = *input.Stock
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty").WithDetails(map[string]any{"field": "category"})
		}
		updates["category"] = category
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.VideoURL != nil {
		updates["video_url"] = *input.VideoURL
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, db.TranslateError(err)
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, caller policy.Caller, id uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProducts, policy.OpDelete, caller, product); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return db.TranslateError(err)
	}
	return nil
}

// load fetches a product and hides it unless caller may see it.
func (s *service) load(ctx context.Context, caller policy.Caller, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, product); err != nil {
		return nil, err
	}
	return product, nil
}

func checkPrice(price decimal.Decimal) error {
	if !price.IsPositive() || !money.HasScale(price) || !money.InRange(price) {
		return db.Violation(db.ConstraintDetails{Constraint: constraintPrice, Table: "products", Field: "price", Value: price.String()})
	}
	return nil
}

func checkStock(stock int) error {
	if stock < 0 || stock > math.MaxInt32 {
		return db.Violation(db.ConstraintDetails{Constraint: constraintStock, Table: "products", Field: "stock", Value: fmt.Sprint(stock)})
	}
	return nil
}
