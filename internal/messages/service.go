package messages

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

const constraintContent = "messages_content_check"

// Service exposes messaging between profiles.
type Service interface {
	Send(ctx context.Context, caller policy.Caller, input SendMessageInput) (*MessageDTO, error)
	Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*MessageDTO, error)
	Inbox(ctx context.Context, caller policy.Caller, input InboxInput) (pagination.Page[MessageDTO], error)
	Conversation(ctx context.Context, caller policy.Caller, withID uuid.UUID, params pagination.Params) (pagination.Page[MessageDTO], error)
	MarkRead(ctx context.Context, caller policy.Caller, id uuid.UUID) (*MessageDTO, error)
	UnreadCount(ctx context.Context, caller policy.Caller) (UnreadCountDTO, error)
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
		return nil, fmt.Errorf("message repository required")
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

func (s *service) Send(ctx context.Context, caller policy.Caller, input SendMessageInput) (*MessageDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return nil, db.Violation(db.ConstraintDetails{Constraint: constraintContent, Table: "messages", Field: "content"})
	}
	if input.RecipientID == caller.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot send a message to yourself").
			WithDetails(map[string]any{"field": "recipient_id"})
	}

	recipient, err := s.repo.FindProfile(ctx, input.RecipientID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableProfiles, caller, recipient); err != nil {
		return nil, err
	}
	if input.ProductID != nil {
		product, err := s.repo.FindProduct(ctx, *input.ProductID)
		if err != nil {
			return nil, db.TranslateError(err)
		}
		if err := s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, product); err != nil {
			return nil, err
		}
	}
	if input.ParentID != nil {
		if err := s.checkParent(ctx, caller, *input.ParentID, input.RecipientID); err != nil {
			return nil, err
		}
	}

	message := models.Message{
		SenderID:    caller.ID,
		RecipientID: input.RecipientID,
		ProductID:   input.ProductID,
		ParentID:    input.ParentID,
		Content:     content,
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableMessages, policy.OpInsert, caller, message); err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &message); err != nil {
			return db.TranslateError(err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMessageSent,
			AggregateType: enums.AggregateMessage,
			AggregateID:   message.ID,
			Actor:         &outbox.ActorRef{UserID: caller.ID, Role: caller.Role},
			Data: payloads.MessageSentEvent{
				MessageID:   message.ID,
				SenderID:    message.SenderID,
				RecipientID: message.RecipientID,
				Kind:        message.Kind(),
				ProductID:   message.ProductID,
				ParentID:    message.ParentID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.FindByID(ctx, message.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	dto := FromModel(*stored)
	return &dto, nil
}

// checkParent requires the parent to be visible and to belong to the
// conversation between the caller and recipientID.
func (s *service) checkParent(ctx context.Context, caller policy.Caller, parentID, recipientID uuid.UUID) error {
	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		return db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableMessages, caller, parent); err != nil {
		return err
	}
	other := parent.SenderID
	if other == caller.ID {
		other = parent.RecipientID
	}
	if other != recipientID {
		return pkgerrors.New(pkgerrors.CodeValidation, "parent message belongs to another conversation").
			WithDetails(map[string]any{"field": "parent_id", "value": parentID.String()})
	}
	return nil
}

func (s *service) Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*MessageDTO, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableMessages, caller, message); err != nil {
		return nil, err
	}
	dto := FromModel(*message)
	return &dto, nil
}

// Inbox lists every message the caller sent or received, newest first.
func (s *service) Inbox(ctx context.Context, caller policy.Caller, input InboxInput) (pagination.Page[MessageDTO], error) {
	if !caller.Authenticated() {
		return pagination.Page[MessageDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[MessageDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListInbox(ctx, s.policies.Scope(policy.TableMessages, caller), caller.ID, input, cursor)
	if err != nil {
		return pagination.Page[MessageDTO]{}, db.TranslateError(err)
	}
	return page(rows, input.Pagination.Limit), nil
}

func (s *service) Conversation(ctx context.Context, caller policy.Caller, withID uuid.UUID, params pagination.Params) (pagination.Page[MessageDTO], error) {
	if !caller.Authenticated() {
		return pagination.Page[MessageDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[MessageDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListConversation(ctx, s.policies.Scope(policy.TableMessages, caller), caller.ID, withID, params, cursor)
	if err != nil {
		return pagination.Page[MessageDTO]{}, db.TranslateError(err)
	}
	return page(rows, params.Limit), nil
}

// MarkRead sets is_read. Only the recipient passes the update policy.
func (s *service) MarkRead(ctx context.Context, caller policy.Caller, id uuid.UUID) (*MessageDTO, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableMessages, policy.OpUpdate, caller, message); err != nil {
		return nil, err
	}
	if !message.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return nil, db.TranslateError(err)
		}
		message, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, db.TranslateError(err)
		}
	}
	dto := FromModel(*message)
	return &dto, nil
}

func (s *service) UnreadCount(ctx context.Context, caller policy.Caller) (UnreadCountDTO, error) {
	if !caller.Authenticated() {
		return UnreadCountDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	n, err := s.repo.CountUnread(ctx, caller.ID)
	if err != nil {
		return UnreadCountDTO{}, db.TranslateError(err)
	}
	return UnreadCountDTO{Unread: n}, nil
}

func page(rows []models.Message, limit int) pagination.Page[MessageDTO] {
	dtos := make([]MessageDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	return pagination.Build(dtos, limit, func(m MessageDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
}
