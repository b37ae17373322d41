package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// SourceDirect marks orders placed outside checkout in order_created events.
const SourceDirect = "direct"

// Service exposes order operations.
type Service interface {
	Create(ctx context.Context, caller policy.Caller, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, caller policy.Caller, input ListInput) (pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, caller policy.Caller, id uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	Products productReader
	Policies *policy.Set
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     *Repository
	products productReader
	policies *policy.Set
	outbox   outbox.Emitter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
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
		products: params.Products,
		policies: params.Policies,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, caller policy.Caller, input CreateOrderInput) (*OrderDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, product); err != nil {
		return nil, err
	}
	if input.UnitPrice != nil && !money.Equal(*input.UnitPrice, product.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product price changed").
			WithDetails(map[string]any{"field": "unit_price", "value": money.String(product.Price)})
	}

	order, err := Build(caller.ID, *product, input.Quantity, input.ShippingAddress, input.Notes)
	if err != nil {
		return nil, err
	}
	if input.TotalPrice != nil {
		if err := CheckTotal(order.UnitPrice, order.Quantity, *input.TotalPrice); err != nil {
			return nil, err
		}
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableOrders, policy.OpInsert, caller, order); err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &order); err != nil {
			return db.TranslateError(err)
		}
		return EmitCreated(ctx, s.outbox, tx, caller, order, SourceDirect)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	dto := FromModel(*created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if err := s.policies.AuthorizeRead(ctx, policy.TableOrders, caller, order); err != nil {
		return nil, err
	}
	dto := FromModel(*order)
	return &dto, nil
}

// ListMine returns orders where the caller is buyer or seller, narrowed by
// input.As and input.Status.
func (s *service) ListMine(ctx context.Context, caller policy.Caller, input ListInput) (pagination.Page[OrderDTO], error) {
	if !caller.Authenticated() {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	switch input.As {
	case "", PartyAny, PartyBuyer, PartySeller:
	default:
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "as must be buyer or seller").
			WithDetails(map[string]any{"field": "as", "value": string(input.As)})
	}
	if input.Status != nil && !input.Status.IsValid() {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"field": "status", "value": string(*input.Status)})
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, s.policies.Scope(policy.TableOrders, caller), caller.ID, input, cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, db.TranslateError(err)
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	return pagination.Build(dtos, input.Pagination.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// UpdateStatus applies one transition of the order state machine. Only the
// seller may move an order.
func (s *service) UpdateStatus(ctx context.Context, caller policy.Caller, id uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"field": "status", "value": string(input.Status)})
	}

	var out *OrderDTO
	var from enums.OrderStatus
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return db.TranslateError(err)
		}
		if err := s.policies.AuthorizeWrite(ctx, policy.TableOrders, policy.OpUpdate, caller, order); err != nil {
			return err
		}
		from = order.Status
		if !from.CanTransitionTo(input.Status) {
			return transitionError(from, input.Status)
		}
		ok, err := repo.UpdateStatus(ctx, order.ID, from, input.Status)
		if err != nil {
			return db.TranslateError(err)
		}
		if !ok {
			return transitionError(from, input.Status)
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: caller.ID, Role: caller.Role},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  order.ID,
				BuyerID:  order.BuyerID,
				SellerID: order.SellerID,
				From:     from,
				To:       input.Status,
			},
		}); err != nil {
			return err
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return db.TranslateError(err)
		}
		dto := FromModel(*updated)
		out = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": id.String(),
			"from":     string(from),
			"to":       string(input.Status),
		})
		s.logg.Info(logCtx, "order status changed")
	}
	return out, nil
}

// EmitCreated writes the order_created event inside tx.
func EmitCreated(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, caller policy.Caller, order models.Order, source string) error {
	return emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: caller.ID, Role: caller.Role},
		Data: payloads.OrderCreatedEvent{
			OrderID:    order.ID,
			BuyerID:    order.BuyerID,
			SellerID:   order.SellerID,
			ProductID:  order.ProductID,
			Quantity:   order.Quantity,
			TotalPrice: money.String(order.TotalPrice),
			Source:     source,
		},
	})
}

func transitionError(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{
			"from":    string(from),
			"to":      string(to),
			"allowed": from.NextStatuses(),
		})
}
