package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/google/uuid"
)

// Register creates an identity and stores the returned tokens on the client.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	c.SetTokens(out.Tokens)
	return &out, nil
}

// Login stores the returned tokens on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetTokens(out.Tokens)
	return &out, nil
}

// Refresh rotates the session using the stored refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	body := map[string]string{"refresh_token": c.Tokens().RefreshToken}
	var out Tokens
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", nil, body, &out); err != nil {
		return err
	}
	c.SetTokens(out)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetTokens(Tokens{})
	return nil
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMe(ctx context.Context, in UpdateProfileInput) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodPatch, "/api/v1/me", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BecomeSeller switches the caller to the seller role and creates the store
// in one server transaction. On failure Step reports the stage reached.
func (c *Client) BecomeSeller(ctx context.Context, in BecomeSellerInput, opts ...CallOption) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodPost, "/api/v1/me/become-seller", nil, in, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BackToBuyer(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodPost, "/api/v1/me/back-to-buyer", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAvatar stores the image under {caller_id}/{fileName}.
func (c *Client) UploadAvatar(ctx context.Context, fileName, contentType string, r io.Reader) (*Avatar, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build avatar form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close avatar form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/me/avatar", &buf)
	if err != nil {
		return nil, fmt.Errorf("build avatar request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out Avatar
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAvatar(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/me/avatar", nil, map[string]string{"key": key}, nil)
}

func (c *Client) ListSellers(ctx context.Context, query string, p PageParams) (Page[Seller], error) {
	q := pageQuery(p)
	if query != "" {
		q.Set("q", query)
	}
	var out Page[Seller]
	err := c.do(ctx, http.MethodGet, "/api/v1/sellers", q, nil, &out)
	return out, err
}

// GetSeller looks a store up by its owner's profile id.
func (c *Client) GetSeller(ctx context.Context, profileID uuid.UUID) (*Seller, error) {
	var out Seller
	if err := c.do(ctx, http.MethodGet, "/api/v1/sellers/"+escape(profileID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMySeller(ctx context.Context, in UpdateSellerInput) (*Seller, error) {
	var out Seller
	if err := c.do(ctx, http.MethodPatch, "/api/v1/me/seller", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func productQuery(f ProductFilters, p PageParams) url.Values {
	q := pageQuery(p)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.SellerID != nil {
		q.Set("seller_id", f.SellerID.String())
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	return q
}

func (c *Client) ListProducts(ctx context.Context, f ProductFilters, p PageParams) (Page[Product], error) {
	var out Page[Product]
	err := c.do(ctx, http.MethodGet, "/api/v1/products", productQuery(f, p), nil, &out)
	return out, err
}

// ListMyProducts includes inactive products.
func (c *Client) ListMyProducts(ctx context.Context, f ProductFilters, p PageParams) (Page[Product], error) {
	var out Page[Product]
	err := c.do(ctx, http.MethodGet, "/api/v1/me/products", productQuery(f, p), nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPost, "/api/v1/products", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPatch, "/api/v1/products/"+escape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/products/"+escape(id), nil, nil, nil)
}

func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var out Cart
	if err := c.do(ctx, http.MethodGet, "/api/v1/cart", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddToCart adds quantity to the existing line for the product, if any.
func (c *Client) AddToCart(ctx context.Context, productID uuid.UUID, quantity int) (*CartItem, error) {
	body := map[string]any{"product_id": productID, "quantity": quantity}
	var out CartItem
	if err := c.do(ctx, http.MethodPost, "/api/v1/cart/items", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID uuid.UUID, quantity int) (*CartItem, error) {
	var out CartItem
	body := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/cart/items/"+escape(itemID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cart/items/"+escape(itemID), nil, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cart", nil, nil, nil)
}

// Checkout turns every cart line into an order and clears the cart.
func (c *Client) Checkout(ctx context.Context, in CheckoutInput, opts ...CallOption) (*CheckoutResult, error) {
	var out CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/checkout", nil, in, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput, opts ...CallOption) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", nil, in, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilters, p PageParams) (Page[Order], error) {
	q := pageQuery(p)
	if f.As != "" {
		q.Set("as", f.As)
	}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	var out Page[Order]
	err := c.do(ctx, http.MethodGet, "/api/v1/orders", q, nil, &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	var out Order
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/orders/"+escape(id)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendMessage(ctx context.Context, in SendMessageInput, opts ...CallOption) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", nil, in, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Inbox(ctx context.Context, unreadOnly bool, p PageParams) (Page[Message], error) {
	q := pageQuery(p)
	if unreadOnly {
		q.Set("unread", "true")
	}
	var out Page[Message]
	err := c.do(ctx, http.MethodGet, "/api/v1/messages", q, nil, &out)
	return out, err
}

func (c *Client) Conversation(ctx context.Context, with uuid.UUID, p PageParams) (Page[Message], error) {
	var out Page[Message]
	err := c.do(ctx, http.MethodGet, "/api/v1/conversations/"+escape(with), pageQuery(p), nil, &out)
	return out, err
}

// MarkRead succeeds only for the recipient.
func (c *Client) MarkRead(ctx context.Context, id uuid.UUID) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages/"+escape(id)+"/read", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Unread int64 `json:"unread"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/messages/unread-count", nil, nil, &out)
	return out.Unread, err
}

func (c *Client) Wishlist(ctx context.Context, p PageParams) (Page[WishlistItem], error) {
	var out Page[WishlistItem]
	err := c.do(ctx, http.MethodGet, "/api/v1/wishlist", pageQuery(p), nil, &out)
	return out, err
}

func (c *Client) ToggleWishlist(ctx context.Context, productID uuid.UUID) (*WishlistToggle, error) {
	var out WishlistToggle
	if err := c.do(ctx, http.MethodPost, "/api/v1/wishlist/"+escape(productID)+"/toggle", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleLike(ctx context.Context, productID uuid.UUID) (*LikeSummary, error) {
	var out LikeSummary
	if err := c.do(ctx, http.MethodPost, "/api/v1/products/"+escape(productID)+"/likes", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Likes(ctx context.Context, productID uuid.UUID) (*LikeSummary, error) {
	var out LikeSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+escape(productID)+"/likes", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Comments(ctx context.Context, productID uuid.UUID, p PageParams) (Page[Comment], error) {
	var out Page[Comment]
	err := c.do(ctx, http.MethodGet, "/api/v1/products/"+escape(productID)+"/comments", pageQuery(p), nil, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, productID uuid.UUID, content string) (*Comment, error) {
	var out Comment
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/api/v1/products/"+escape(productID)+"/comments", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/comments/"+escape(id), nil, nil, nil)
}
