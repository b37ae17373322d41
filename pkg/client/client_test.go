package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", WithTokens(Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	require.ErrorIs(t, err, errBaseURLRequired)
}

func TestGetProductDecodesEnvelope(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/products/"+id.String(), r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		responses.WriteSuccess(w, map[string]any{
			"id":        id,
			"title":     "Lamp",
			"price":     "10.00",
			"stock":     5,
			"is_active": true,
		})
	})

	p, err := c.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
	require.True(t, p.Price.Equal(decimal.RequireFromString("10")))
	require.Equal(t, 5, p.Stock)
}

func TestStructuredErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/me/become-seller":
			err := pkgerrors.New(pkgerrors.CodeConflict, "seller exists").WithStep("create_seller")
			responses.WriteError(r.Context(), nil, w, err)
		case "/api/v1/orders/" + uuid.Nil.String():
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
		default:
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "not yours"))
		}
	})
	ctx := context.Background()

	_, err := c.BecomeSeller(ctx, BecomeSellerInput{StoreName: "Shop"}, WithIdempotencyKey("k1"))
	require.Error(t, err)
	require.True(t, IsConstraint(err))
	require.Equal(t, "create_seller", Step(err))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.Status)

	_, err = c.GetOrder(ctx, uuid.Nil)
	require.True(t, IsNotFound(err))
	require.False(t, IsTransient(err))

	err = c.DeleteProduct(ctx, uuid.New())
	require.True(t, IsForbidden(err))
	require.False(t, IsNotFound(err))
}

func TestErrorWithoutEnvelopeIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	require.True(t, IsTransient(err))
	require.Equal(t, "", Step(err))
}

func TestTransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL, WithHTTPClient(&http.Client{Timeout: time.Second}))
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	require.True(t, IsTransient(err))
}

func TestLoginStoresTokens(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@b.co", body["email"])
		responses.WriteSuccess(w, map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"profile":       map[string]any{"id": uuid.New(), "role": "buyer"},
		})
	})

	res, err := c.Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	require.Equal(t, "buyer", string(res.Profile.Role))
	require.Equal(t, "access-2", c.Tokens().AccessToken)
}

func TestIdempotencyKeyHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "checkout-1", r.Header.Get("Idempotency-Key"))
		responses.WriteCreated(w, map[string]any{"orders": []any{}, "total": "0"})
	})

	res, err := c.Checkout(context.Background(), CheckoutInput{}, WithIdempotencyKey("checkout-1"))
	require.NoError(t, err)
	require.Empty(t, res.Orders)
}

func TestUploadAvatarMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		require.Equal(t, "png-bytes", string(data))
		require.Equal(t, "image/png", header.Header.Get("Content-Type"))
		responses.WriteCreated(w, map[string]string{"key": "u/me.png", "url": "http://cdn/u/me.png", "avatar_url": "http://cdn/u/me.png"})
	})

	out, err := c.UploadAvatar(context.Background(), "me.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "u/me.png", out.Key)
}

func TestSessionMergesConfirmedRows(t *testing.T) {
	itemID := uuid.New()
	productID := uuid.New()
	orderID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/cart/items":
			responses.WriteSuccess(w, map[string]any{"id": itemID, "product_id": productID, "quantity": 2})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/checkout":
			responses.WriteCreated(w, map[string]any{
				"orders": []map[string]any{{"id": orderID, "product_id": productID, "quantity": 2, "unit_price": "10", "total_price": "20", "status": "pending"}},
				"total":  "20",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	s := NewSession(c)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, productID, 2)
	require.NoError(t, err)
	item, ok := s.Cart.Get(itemID)
	require.True(t, ok)
	require.Equal(t, 2, item.Quantity)

	_, err = s.Checkout(ctx, CheckoutInput{}, WithIdempotencyKey("c1"))
	require.NoError(t, err)
	require.Zero(t, s.Cart.Len())
	order, ok := s.Orders.Get(orderID)
	require.True(t, ok)
	require.True(t, order.TotalPrice.Equal(decimal.NewFromInt(20)))
}

func TestSessionClosedDiscardsResults(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"id": id, "is_read": true})
	})
	s := NewSession(c)
	s.Close()

	msg, err := s.MarkRead(context.Background(), id)
	require.NoError(t, err)
	require.True(t, msg.IsRead)
	require.Zero(t, s.Messages.Len())
}

func TestSessionLaterPagesExtendListing(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/messages", r.URL.Path)
		if r.URL.Query().Get("cursor") == "page-2" {
			responses.WriteSuccess(w, map[string]any{
				"items": []map[string]any{{"id": second, "content": "older"}},
			})
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":       []map[string]any{{"id": first, "content": "newer"}},
			"next_cursor": "page-2",
		})
	})
	s := NewSession(c)
	ctx := context.Background()

	page, err := s.LoadInbox(ctx, false, PageParams{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, "page-2", page.NextCursor)

	_, err = s.LoadInbox(ctx, false, PageParams{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Equal(t, 2, s.Messages.Len())
	_, ok := s.Messages.Get(first)
	require.True(t, ok, "first page rows survive loading the next page")
	_, ok = s.Messages.Get(second)
	require.True(t, ok)

	// reloading from the top starts the listing over
	_, err = s.LoadInbox(ctx, false, PageParams{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, s.Messages.Len())
	_, ok = s.Messages.Get(second)
	require.False(t, ok)
}
