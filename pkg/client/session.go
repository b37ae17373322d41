package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/viewstate"
)

// Session mirrors the caller's rows into view state. Each call takes a
// ticket before the request leaves and merges the confirmed server row
// afterwards; a result that lost its ticket to a newer request or to Close
// is dropped.
type Session struct {
	*Client

	Products *viewstate.Store[uuid.UUID, Product]
	Cart     *viewstate.Store[uuid.UUID, CartItem]
	Orders   *viewstate.Store[uuid.UUID, Order]
	Messages *viewstate.Store[uuid.UUID, Message]
}

func NewSession(c *Client) *Session {
	return &Session{
		Client: c,
		Products: viewstate.New(func(p Product) uuid.UUID { return p.ID },
			viewstate.WithOrder[uuid.UUID](func(a, b Product) bool { return a.CreatedAt.After(b.CreatedAt) })),
		Cart: viewstate.New(func(i CartItem) uuid.UUID { return i.ID },
			viewstate.WithOrder[uuid.UUID](func(a, b CartItem) bool { return a.CreatedAt.Before(b.CreatedAt) })),
		Orders: viewstate.New(func(o Order) uuid.UUID { return o.ID },
			viewstate.WithOrder[uuid.UUID](func(a, b Order) bool { return a.CreatedAt.After(b.CreatedAt) })),
		Messages: viewstate.New(func(m Message) uuid.UUID { return m.ID },
			viewstate.WithOrder[uuid.UUID](func(a, b Message) bool { return a.CreatedAt.After(b.CreatedAt) })),
	}
}

// Close discards every in-flight result.
func (s *Session) Close() {
	s.Products.Close()
	s.Cart.Close()
	s.Orders.Close()
	s.Messages.Close()
}

func newScope() string { return "new:" + uuid.NewString() }

// pageScope and pageOp let the first page reset a listing while later pages
// extend it.
func pageScope(p PageParams) string {
	if p.Cursor == "" {
		return viewstate.ScopeAll
	}
	return "page:" + p.Cursor
}

func pageOp[V any](p PageParams, rows []V) viewstate.Op[uuid.UUID, V] {
	if p.Cursor == "" {
		return viewstate.Replace[uuid.UUID](rows)
	}
	return viewstate.Merge[uuid.UUID](rows)
}

func (s *Session) LoadMyProducts(ctx context.Context, f ProductFilters, p PageParams) (Page[Product], error) {
	t := s.Products.Begin(pageScope(p))
	page, err := s.ListMyProducts(ctx, f, p)
	if err != nil {
		return page, err
	}
	s.Products.Apply(t, pageOp(p, page.Items))
	return page, nil
}

func (s *Session) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	t := s.Products.Begin(newScope())
	out, err := s.Client.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	s.Products.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}

func (s *Session) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*Product, error) {
	t := s.Products.Begin(id.String())
	out, err := s.Client.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.Products.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}

func (s *Session) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	t := s.Products.Begin(id.String())
	if err := s.Client.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.Products.Apply(t, viewstate.Remove[uuid.UUID, Product](id))
	return nil
}

func (s *Session) LoadCart(ctx context.Context) (*Cart, error) {
	t := s.Cart.Begin(viewstate.ScopeAll)
	out, err := s.Client.Cart(ctx)
	if err != nil {
		return nil, err
	}
	s.Cart.Apply(t, viewstate.Replace[uuid.UUID](out.Items))
	return out, nil
}

// AddToCart is keyed by product so two quick adds of the same product keep
// only the later server row.
func (s *Session) AddToCart(ctx context.Context, productID uuid.UUID, quantity int) (*CartItem, error) {
	t := s.Cart.Begin("product:" + productID.String())
	out, err := s.Client.AddToCart(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	s.Cart.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}

func (s *Session) UpdateCartItem(ctx context.Context, itemID uuid.UUID, quantity int) (*CartItem, error) {
	t := s.Cart.Begin(itemID.String())
	out, err := s.Client.UpdateCartItem(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	s.Cart.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}

func (s *Session) RemoveCartItem(ctx context.Context, itemID uuid.UUID) error {
	t := s.Cart.Begin(itemID.String())
	if err := s.Client.RemoveCartItem(ctx, itemID); err != nil {
		return err
	}
	s.Cart.Apply(t, viewstate.Remove[uuid.UUID, CartItem](itemID))
	return nil
}

// Checkout empties the mirrored cart and merges the created orders.
func (s *Session) Checkout(ctx context.Context, in CheckoutInput, opts ...CallOption) (*CheckoutResult, error) {
	cartTicket := s.Cart.Begin(viewstate.ScopeAll)
	orderTicket := s.Orders.Begin(newScope())
	out, err := s.Client.Checkout(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	s.Cart.Apply(cartTicket, viewstate.Replace[uuid.UUID]([]CartItem{}))
	s.Orders.Apply(orderTicket, viewstate.Merge[uuid.UUID](out.Orders))
	return out, nil
}

func (s *Session) LoadOrders(ctx context.Context, f OrderFilters, p PageParams) (Page[Order], error) {
	t := s.Orders.Begin(pageScope(p))
	page, err := s.ListOrders(ctx, f, p)
	if err != nil {
		return page, err
	}
	s.Orders.Apply(t, pageOp(p, page.Items))
	return page, nil
}

func (s *Session) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	t := s.Orders.Begin(id.String())
	out, err := s.Client.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.Orders.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}

func (s *Session) LoadInbox(ctx context.Context, unreadOnly bool, p PageParams) (Page[Message], error) {
	t := s.Messages.Begin(pageScope(p))
	page, err := s.Inbox(ctx, unreadOnly, p)
	if err != nil {
		return page, err
	}
	s.Messages.Apply(t, pageOp(p, page.Items))
	return page, nil
}

func (s *Session) SendMessage(ctx context.Context, in SendMessageInput, opts ...CallOption) (*Message, error) {
	t := s.Messages.Begin(newScope())
	out, err := s.Client.SendMessage(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	s.Messages.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}

func (s *Session) MarkRead(ctx context.Context, id uuid.UUID) (*Message, error) {
	t := s.Messages.Begin(id.String())
	out, err := s.Client.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Messages.Apply(t, viewstate.Upsert[uuid.UUID](*out))
	return out, nil
}
