package sellers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Service exposes the seller directory and the owner's store settings.
type Service interface {
	List(ctx context.Context, caller policy.Caller, params ListParams) (pagination.Page[SellerDTO], error)
	Get(ctx context.Context, caller policy.Caller, profileID uuid.UUID) (*SellerDTO, error)
	UpdateMine(ctx context.Context, caller policy.Caller, input UpdateSellerInput) (*SellerDTO, error)
}

type service struct {
	repo     *Repository
	policies *policy.Set
}

func NewService(repo *Repository, policies *policy.Set) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	return &service{repo: repo, policies: policies}, nil
}

func (s *service) List(ctx context.Context, caller policy.Caller, params ListParams) (pagination.Page[SellerDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[SellerDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, s.policies.Scope(policy.TableSellers, caller), params, cursor)
	if err != nil {
		return pagination.Page[SellerDTO]{}, db.TranslateError(err)
	}
	dtos := make([]SellerDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row, row.ProfileID == caller.ID))
	}
	return pagination.Build(dtos, params.Limit, func(d SellerDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	}), nil
}

func (s *service) Get(ctx context.Context, caller policy.Caller, profileID uuid.UUID) (*SellerDTO, error) {
	seller, err := s.repo.FindByProfileID(ctx, profileID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableSellers, caller, seller); err != nil {
		return nil, err
	}
	dto := FromModel(*seller, seller.ProfileID == caller.ID)
	return &dto, nil
}

func (s *service) UpdateMine(ctx context.Context, caller policy.Caller, input UpdateSellerInput) (*SellerDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	seller, err := s.repo.FindByProfileID(ctx, caller.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableSellers, policy.OpUpdate, caller, seller); err != nil {
		return nil, err
	}

	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, seller.ID, updates); err != nil {
		return nil, db.TranslateError(err)
	}

	updated, err := s.repo.FindByProfileID(ctx, caller.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	dto := FromModel(*updated, true)
	return &dto, nil
}

func buildUpdates(input UpdateSellerInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.StoreName != nil {
		name := strings.TrimSpace(*input.StoreName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_name cannot be empty").
				WithDetails(map[string]any{"field": "store_name"})
		}
		updates["store_name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.PaymentInfo != nil {
		info := *input.PaymentInfo
		if err := info.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_info").
				WithDetails(map[string]any{"field": "payment_info"})
		}
		updates["payment_info"] = datatypes.NewJSONType(info)
	}
	return updates, nil
}

// ToModel is used by role transitions to build the seller row for a profile.
func ToModel(profileID uuid.UUID, storeName string, description, address *string) models.Seller {
	return models.Seller{
		ProfileID:   profileID,
		StoreName:   strings.TrimSpace(storeName),
		Description: description,
		Address:     address,
	}
}
