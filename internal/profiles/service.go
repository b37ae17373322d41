package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/internal/sellers"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

// Steps reported in details.step when a role transition fails.
const (
	StepLoadProfile  = "load_profile"
	StepUpdateRole   = "update_role"
	StepCreateSeller = "create_seller"
	StepDeleteSeller = "delete_seller"
)

// Service exposes profile reads, self-service updates, and role transitions.
type Service interface {
	GetMe(ctx context.Context, caller policy.Caller) (*ProfileDTO, error)
	GetByID(ctx context.Context, caller policy.Caller, id uuid.UUID) (*ProfileDTO, error)
	UpdateMe(ctx context.Context, caller policy.Caller, input UpdateProfileInput) (*ProfileDTO, error)
	BecomeSeller(ctx context.Context, caller policy.Caller, input BecomeSellerInput) (*ProfileDTO, error)
	BackToBuyer(ctx context.Context, caller policy.Caller) (*ProfileDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	Policies *policy.Set
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     *Repository
	policies *policy.Set
	outbox   outbox.Emitter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		policies: params.Policies,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

func (s *service) GetMe(ctx context.Context, caller policy.Caller) (*ProfileDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.GetByID(ctx, caller, caller.ID)
}

func (s *service) GetByID(ctx context.Context, caller policy.Caller, id uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableProfiles, caller, profile); err != nil {
		return nil, err
	}
	return s.load(ctx, nil, *profile, caller)
}

func (s *service) UpdateMe(ctx context.Context, caller policy.Caller, input UpdateProfileInput) (*ProfileDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.repo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProfiles, policy.OpUpdate, caller, profile); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name cannot be empty").
				WithDetails(map[string]any{"field": "full_name"})
		}
		updates["full_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = nullableTrim(*input.Phone)
	}
	if input.Bio != nil {
		updates["bio"] = nullableTrim(*input.Bio)
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = nullableTrim(*input.AvatarURL)
	}
	if err := s.repo.Update(ctx, nil, caller.ID, updates); err != nil {
		return nil, db.TranslateError(err)
	}

	updated, err := s.repo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return s.load(ctx, nil, *updated, caller)
}

// BecomeSeller flips the role and creates the seller row in one transaction.
func (s *service) BecomeSeller(ctx context.Context, caller policy.Caller, input BecomeSellerInput) (*ProfileDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	storeName := strings.TrimSpace(input.StoreName)
	if storeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_name is required").
			WithDetails(map[string]any{"field": "store_name"})
	}

	var out *ProfileDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.lockProfile(ctx, tx, caller)
		if err != nil {
			return err
		}
		if profile.Role == enums.UserRoleSeller {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "profile is already a seller").WithStep(StepUpdateRole)
		}
		if err := s.repo.Update(ctx, tx, profile.ID, map[string]any{"role": enums.UserRoleSeller}); err != nil {
			return pkgerrors.AtStep(db.TranslateError(err), StepUpdateRole)
		}

		// the caller wears the seller role from here on
		sellerCaller := policy.Caller{ID: caller.ID, Role: enums.UserRoleSeller}
		seller := sellers.ToModel(profile.ID, storeName, input.Description, input.Address)
		if err := s.policies.AuthorizeWrite(ctx, policy.TableSellers, policy.OpInsert, sellerCaller, seller); err != nil {
			return pkgerrors.AtStep(err, StepCreateSeller)
		}
		if err := s.repo.CreateSeller(ctx, tx, &seller); err != nil {
			return pkgerrors.AtStep(db.TranslateError(err), StepCreateSeller)
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerEnabled,
			AggregateType: enums.AggregateSeller,
			AggregateID:   seller.ID,
			Actor:         &outbox.ActorRef{UserID: caller.ID, Role: enums.UserRoleSeller},
			Data:          payloads.SellerEnabledEvent{ProfileID: profile.ID, SellerID: seller.ID, StoreName: seller.StoreName},
		}); err != nil {
			return pkgerrors.AtStep(err, StepCreateSeller)
		}

		out, err = s.reload(ctx, tx, sellerCaller)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, caller.ID, enums.UserRoleSeller)
	return out, nil
}

// BackToBuyer flips the role and deletes the seller row in one transaction.
func (s *service) BackToBuyer(ctx context.Context, caller policy.Caller) (*ProfileDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var out *ProfileDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.lockProfile(ctx, tx, caller)
		if err != nil {
			return err
		}
		if profile.Role != enums.UserRoleSeller {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "profile is not a seller").WithStep(StepUpdateRole)
		}
		if err := s.repo.Update(ctx, tx, profile.ID, map[string]any{"role": enums.UserRoleBuyer}); err != nil {
			return pkgerrors.AtStep(db.TranslateError(err), StepUpdateRole)
		}

		seller, err := s.repo.FindSeller(ctx, tx, profile.ID)
		if err != nil {
			return pkgerrors.AtStep(db.TranslateError(err), StepDeleteSeller)
		}
		if seller != nil {
			if err := s.policies.AuthorizeWrite(ctx, policy.TableSellers, policy.OpDelete, caller, seller); err != nil {
				return pkgerrors.AtStep(err, StepDeleteSeller)
			}
			if err := s.repo.DeleteSeller(ctx, tx, seller.ID); err != nil {
				return pkgerrors.AtStep(db.TranslateError(err), StepDeleteSeller)
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSellerDisabled,
				AggregateType: enums.AggregateSeller,
				AggregateID:   seller.ID,
				Actor:         &outbox.ActorRef{UserID: caller.ID, Role: enums.UserRoleBuyer},
				Data:          payloads.SellerDisabledEvent{ProfileID: profile.ID, SellerID: seller.ID},
			}); err != nil {
				return pkgerrors.AtStep(err, StepDeleteSeller)
			}
		}

		out, err = s.reload(ctx, tx, policy.Caller{ID: caller.ID, Role: enums.UserRoleBuyer})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, caller.ID, enums.UserRoleBuyer)
	return out, nil
}

func (s *service) lockProfile(ctx context.Context, tx *gorm.DB, caller policy.Caller) (*models.Profile, error) {
	profile, err := s.repo.FindByIDForUpdate(ctx, tx, caller.ID)
	if err != nil {
		return nil, pkgerrors.AtStep(db.TranslateError(err), StepLoadProfile)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProfiles, policy.OpUpdate, caller, profile); err != nil {
		return nil, pkgerrors.AtStep(err, StepLoadProfile)
	}
	return profile, nil
}

func (s *service) reload(ctx context.Context, tx *gorm.DB, caller policy.Caller) (*ProfileDTO, error) {
	var profile models.Profile
	if err := tx.WithContext(ctx).First(&profile, "id = ?", caller.ID).Error; err != nil {
		return nil, db.TranslateError(err)
	}
	return s.load(ctx, tx, profile, caller)
}

func (s *service) load(ctx context.Context, tx *gorm.DB, profile models.Profile, caller policy.Caller) (*ProfileDTO, error) {
	var seller *models.Seller
	if profile.Role == enums.UserRoleSeller {
		found, err := s.repo.FindSeller(ctx, tx, profile.ID)
		if err != nil {
			return nil, db.TranslateError(err)
		}
		seller = found
	}
	dto := FromModel(profile, seller, profile.ID == caller.ID)
	return &dto, nil
}

func (s *service) logTransition(ctx context.Context, id uuid.UUID, role enums.UserRole) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"profile_id": id.String(), "role": string(role)})
	s.logg.Info(logCtx, "profile role changed")
}

func nullableTrim(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
