package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout/helpers"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// Steps reported in details.step when checkout fails.
const (
	StepLoadCart    = "load_cart"
	StepLoadProduct = "load_product"
	StepCreateOrder = "create_order"
	StepClearCart   = "clear_cart"
)

// SourceCheckout marks orders created here in order_created events.
const SourceCheckout = "checkout"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, caller policy.Caller, input CheckoutInput) (*Result, error)
}

// CheckoutInput captures the data applied to every order of the checkout.
type CheckoutInput struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	Notes           *string               `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Result lists the created orders, one per cart line.
type Result struct {
	Orders  []orders.OrderDTO      `json:"orders"`
	Sellers []helpers.SellerTotals `json:"sellers"`
	Total   string                 `json:"total"`
}

type service struct {
	tx         txRunner
	cartRepo   cart.CartRepository
	ordersRepo *orders.Repository
	policies   *policy.Set
	outbox     outbox.Emitter
	logg       *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo *orders.Repository,
	policies *policy.Set,
	publisher outbox.Emitter,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		policies:   policies,
		outbox:     publisher,
		logg:       logg,
	}, nil
}

// Execute turns every cart line into a pending order and empties the cart, all
// in one transaction. Stock is neither checked nor decremented.
func (s *service) Execute(ctx context.Context, caller policy.Caller, input CheckoutInput) (*Result, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var created []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		items, err := cartRepo.ListByUser(ctx, s.policies.Scope(policy.TableCartItems, caller), caller.ID)
		if err != nil {
			return pkgerrors.AtStep(db.TranslateError(err), StepLoadCart)
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items").WithStep(StepLoadCart)
		}

		for _, item := range items {
			if item.Product == nil {
				return stepError(pkgerrors.New(pkgerrors.CodeNotFound, "resource not found"), StepLoadProduct, item.ProductID)
			}
			if err := s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, item.Product); err != nil {
				return stepError(err, StepLoadProduct, item.ProductID)
			}

			order, err := orders.Build(caller.ID, *item.Product, item.Quantity, input.ShippingAddress, input.Notes)
			if err != nil {
				return stepError(err, StepCreateOrder, item.ProductID)
			}
			if err := s.policies.AuthorizeWrite(ctx, policy.TableOrders, policy.OpInsert, caller, order); err != nil {
				return stepError(err, StepCreateOrder, item.ProductID)
			}
			if err := ordersRepo.Create(ctx, &order); err != nil {
				return stepError(db.TranslateError(err), StepCreateOrder, item.ProductID)
			}
			if err := orders.EmitCreated(ctx, s.outbox, tx, caller, order, SourceCheckout); err != nil {
				return stepError(err, StepCreateOrder, item.ProductID)
			}
			created = append(created, order)
		}

		if _, err := cartRepo.DeleteByUser(ctx, caller.ID); err != nil {
			return pkgerrors.AtStep(db.TranslateError(err), StepClearCart)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Orders:  make([]orders.OrderDTO, 0, len(created)),
		Sellers: helpers.ComputeTotalsBySeller(created),
		Total:   money.String(helpers.GrandTotal(created)),
	}
	for _, order := range created {
		result.Orders = append(result.Orders, orders.FromModel(order))
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"buyer_id": caller.ID.String(),
			"orders":   len(created),
			"total":    result.Total,
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return result, nil
}

func stepError(err error, step string, productID uuid.UUID) error {
	tagged := pkgerrors.As(pkgerrors.AtStep(err, step))
	details := map[string]any{}
	if existing, ok := tagged.Details().(map[string]any); ok {
		for k, v := range existing {
			details[k] = v
		}
	}
	details["product_id"] = productID.String()
	return tagged.WithDetails(details)
}
