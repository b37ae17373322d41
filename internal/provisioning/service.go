// Package provisioning creates the profile side of a new identity. It runs
// inside the transaction that inserts the identity, so a profile exists from
// the moment the identity commits.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

// PlaceholderName is used when signup metadata carries no full name.
const PlaceholderName = "New User"

// Result describes what the trigger did. Created is false when the profile
// already existed and nothing was written.
type Result struct {
	Profile models.Profile
	Seller  *models.Seller
	Created bool
}

// Trigger is fired once per identity creation.
type Trigger interface {
	OnIdentityCreated(ctx context.Context, tx *gorm.DB, identity models.Identity) (*Result, error)
}

type ServiceParams struct {
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Trigger, error) {
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter is required")
	}
	return &service{outbox: params.Outbox, logg: params.Logger}, nil
}

// OnIdentityCreated inserts the profile for identity. Re-running it for the
// same identity is a no-op.
func (s *service) OnIdentityCreated(ctx context.Context, tx *gorm.DB, identity models.Identity) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if identity.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity id is required")
	}

	meta := identity.Metadata.Data()
	role, err := RoleFromMetadata(meta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid signup role")
	}
	fullName := FullNameFromMetadata(meta)

	profile := models.Profile{
		ID:       identity.ID,
		FullName: fullName,
		Role:     role,
		Email:    identity.Email,
		Wishlist: datatypes.JSONSlice[uuid.UUID]{},
	}
	if phone := strings.TrimSpace(meta.Phone); phone != "" {
		profile.Phone = &phone
	}

	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&profile)
	if res.Error != nil {
		return nil, db.TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.existing(ctx, tx, identity.ID)
	}

	result := &Result{Profile: profile, Created: true}
	if role == enums.UserRoleSeller {
		seller := models.Seller{
			ProfileID: profile.ID,
			StoreName: StoreNameFromMetadata(meta, fullName),
		}
		if err := tx.WithContext(ctx).Create(&seller).Error; err != nil {
			return nil, db.TranslateError(err)
		}
		result.Seller = &seller
	}

	data := payloads.IdentityProvisionedEvent{ProfileID: profile.ID, Role: role}
	if result.Seller != nil {
		data.SellerID = &result.Seller.ID
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventIdentityProvisioned,
		AggregateType: enums.AggregateProfile,
		AggregateID:   profile.ID,
		Actor:         &outbox.ActorRef{UserID: profile.ID, Role: role},
		Data:          data,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit identity_provisioned")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"profile_id": profile.ID.String(), "role": string(role)})
		s.logg.Info(logCtx, "profile provisioned")
	}
	return result, nil
}

func (s *service) existing(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Result, error) {
	var profile models.Profile
	if err := tx.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err)
	}
	result := &Result{Profile: profile}
	var seller models.Seller
	err := tx.WithContext(ctx).Where("profile_id = ?", id).Limit(1).Find(&seller).Error
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if seller.ID != uuid.Nil {
		result.Seller = &seller
	}
	return result, nil
}

// RoleFromMetadata defaults to buyer when the signup did not ask for a role.
func RoleFromMetadata(meta models.IdentityMetadata) (enums.UserRole, error) {
	raw := strings.ToLower(strings.TrimSpace(meta.Role))
	if raw == "" {
		return enums.UserRoleBuyer, nil
	}
	return enums.ParseUserRole(raw)
}

func FullNameFromMetadata(meta models.IdentityMetadata) string {
	if name := strings.TrimSpace(meta.FullName); name != "" {
		return name
	}
	return PlaceholderName
}

func StoreNameFromMetadata(meta models.IdentityMetadata, fullName string) string {
	if name := strings.TrimSpace(meta.StoreName); name != "" {
		return name
	}
	return fmt.Sprintf("%s's Store", fullName)
}
