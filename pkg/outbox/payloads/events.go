package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// IdentityProvisionedEvent is emitted once per identity when its profile is created.
type IdentityProvisionedEvent struct {
	ProfileID uuid.UUID      `json:"profile_id"`
	Role      enums.UserRole `json:"role"`
	SellerID  *uuid.UUID     `json:"seller_id,omitempty"`
}

// SellerEnabledEvent follows a buyer to seller transition.
type SellerEnabledEvent struct {
	ProfileID uuid.UUID `json:"profile_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	StoreName string    `json:"store_name"`
}

// SellerDisabledEvent follows a seller to buyer transition.
type SellerDisabledEvent struct {
	ProfileID uuid.UUID `json:"profile_id"`
	SellerID  uuid.UUID `json:"seller_id"`
}

type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice string    `json:"total_price"`
	Source     string    `json:"source"`
}

type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	BuyerID  uuid.UUID         `json:"buyer_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
}

type MessageSentEvent struct {
	MessageID   uuid.UUID         `json:"message_id"`
	SenderID    uuid.UUID         `json:"sender_id"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	Kind        enums.MessageKind `json:"kind"`
	ProductID   *uuid.UUID        `json:"product_id,omitempty"`
	ParentID    *uuid.UUID        `json:"parent_id,omitempty"`
}
