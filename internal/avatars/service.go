package avatars

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/storage"
)

const defaultMaxUploadBytes = 5 * 1024 * 1024

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	SetAvatarURL(ctx context.Context, id uuid.UUID, url *string) error
}

// UploadInput is one avatar image. Size must match the body length.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type AvatarDTO struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	AvatarURL string `json:"avatar_url"`
}

// Service manages objects in the avatar bucket.
type Service interface {
	Upload(ctx context.Context, caller policy.Caller, input UploadInput) (*AvatarDTO, error)
	Delete(ctx context.Context, caller policy.Caller, key string) error
}

type ServiceParams struct {
	Store          storage.ObjectStore
	Profiles       profileStore
	Policies       *policy.Set
	MaxUploadBytes int64
	Logger         *logger.Logger
}

type service struct {
	store          storage.ObjectStore
	profiles       profileStore
	policies       *policy.Set
	maxUploadBytes int64
	logg           *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	maxBytes := params.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &service{
		store:          params.Store,
		profiles:       params.Profiles,
		policies:       params.Policies,
		maxUploadBytes: maxBytes,
		logg:           params.Logger,
	}, nil
}

// Key is the object key of an avatar: the owner's id, then the file name.
func Key(ownerID uuid.UUID, fileName string) string {
	return ownerID.String() + "/" + fileName
}

// Upload stores the image under the caller's folder and points the profile's
// avatar_url at it. The object is removed again if the profile update fails.
func (s *service) Upload(ctx context.Context, caller policy.Caller, input UploadInput) (*AvatarDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	mimeType, ok := imageType(input.ContentType)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar must be a png, jpeg, webp, or gif image").
			WithDetails(map[string]any{"field": "content_type", "value": input.ContentType})
	}
	if input.Size <= 0 || input.Size > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar size out of range").
			WithDetails(map[string]any{"field": "size", "value": fmt.Sprint(input.Size), "max": s.maxUploadBytes})
	}
	name := cleanFileName(input.FileName)
	if name == "" {
		name = uuid.NewString() + extensions[mimeType]
	}

	key := Key(caller.ID, name)
	if err := s.policies.AuthorizeWrite(ctx, policy.TableAvatars, policy.OpInsert, caller, policy.AvatarObject{Key: key}); err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProfiles, policy.OpUpdate, caller, profile); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, key, io.LimitReader(input.Body, input.Size), input.Size, mimeType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload avatar")
	}
	url := s.store.PublicURL(key)
	if err := s.profiles.SetAvatarURL(ctx, caller.ID, &url); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "key", key), "remove orphaned avatar", delErr)
		}
		return nil, db.TranslateError(err)
	}
	return &AvatarDTO{Key: key, URL: url, AvatarURL: url}, nil
}

// Delete removes an object from the caller's folder. When it is the current
// avatar the profile's avatar_url is cleared too.
func (s *service) Delete(ctx context.Context, caller policy.Caller, key string) error {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "key is required").WithDetails(map[string]any{"field": "key"})
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableAvatars, policy.OpDelete, caller, policy.AvatarObject{Key: key}); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete avatar")
	}

	profile, err := s.profiles.FindByID(ctx, caller.ID)
	if err != nil {
		return db.TranslateError(err)
	}
	if profile.AvatarURL != nil && *profile.AvatarURL == s.store.PublicURL(key) {
		if err := s.profiles.SetAvatarURL(ctx, caller.ID, nil); err != nil {
			return db.TranslateError(err)
		}
	}
	return nil
}
