package policy

import (
	"strings"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// AvatarObject is the row checked for the avatar bucket: an object key of the
// form "{caller_id}/{filename}".
type AvatarObject struct {
	Key string
}

// Owner returns the first path segment of the key.
func (o AvatarObject) Owner() string {
	owner, _, found := strings.Cut(strings.TrimPrefix(o.Key, "/"), "/")
	if !found {
		return ""
	}
	return owner
}

func usingTrue(Caller) (string, []any) { return "1 = 1", nil }

func usingAuthenticated(caller Caller) (string, []any) {
	if caller.Authenticated() {
		return "1 = 1", nil
	}
	return "1 = 0", nil
}

func usingColumn(column string) Using {
	return func(caller Caller) (string, []any) {
		return column + " = ?", []any{caller.ID}
	}
}

// MarketplacePolicies is the full policy set. Names match the CREATE POLICY
// statements in the row level security migration.
func MarketplacePolicies() []Policy {
	return []Policy{
		// profiles: created only by provisioning, never deleted by clients.
		{Name: "profiles_select_authenticated", Table: TableProfiles, Operation: OpSelect, Check: Authenticated, Using: usingAuthenticated},
		{Name: "profiles_update_own", Table: TableProfiles, Operation: OpUpdate, Check: Row(func(c Caller, p models.Profile) bool {
			return p.ID == c.ID
		})},

		{Name: "sellers_select_public", Table: TableSellers, Operation: OpSelect, Check: Public, Using: usingTrue},
		{Name: "sellers_insert_own", Table: TableSellers, Operation: OpInsert, Check: Row(sellerOwned)},
		{Name: "sellers_update_own", Table: TableSellers, Operation: OpUpdate, Check: Row(sellerOwned)},
		{Name: "sellers_delete_own", Table: TableSellers, Operation: OpDelete, Check: Row(sellerOwned)},

		{Name: "products_select_active", Table: TableProducts, Operation: OpSelect, Check: Row(func(_ Caller, p models.Product) bool {
			return p.IsActive
		}), Using: func(Caller) (string, []any) { return "products.is_active = ?", []any{true} }},
		{Name: "products_select_own", Table: TableProducts, Operation: OpSelect, Check: Row(productOwned), Using: usingColumn("products.seller_id")},
		{Name: "products_insert_own", Table: TableProducts, Operation: OpInsert, Check: Row(productOwned)},
		{Name: "products_insert_seller_role", Table: TableProducts, Operation: OpInsert, Check: func(c Caller, _ any) bool {
			return c.IsSeller()
		}},
		{Name: "products_update_own", Table: TableProducts, Operation: OpUpdate, Check: Row(productOwned)},
		{Name: "products_delete_own", Table: TableProducts, Operation: OpDelete, Check: Row(productOwned)},

		{Name: "orders_select_buyer", Table: TableOrders, Operation: OpSelect, Check: Row(orderBuyer), Using: usingColumn("orders.buyer_id")},
		{Name: "orders_select_seller", Table: TableOrders, Operation: OpSelect, Check: Row(orderSeller), Using: usingColumn("orders.seller_id")},
		{Name: "orders_insert_buyer", Table: TableOrders, Operation: OpInsert, Check: Row(orderBuyer)},
		{Name: "orders_update_seller", Table: TableOrders, Operation: OpUpdate, Check: Row(orderSeller)},

		{Name: "messages_select_sender", Table: TableMessages, Operation: OpSelect, Check: Row(messageSender), Using: usingColumn("messages.sender_id")},
		{Name: "messages_select_recipient", Table: TableMessages, Operation: OpSelect, Check: Row(messageRecipient), Using: usingColumn("messages.recipient_id")},
		{Name: "messages_insert_sender", Table: TableMessages, Operation: OpInsert, Check: Row(messageSender)},
		{Name: "messages_update_recipient", Table: TableMessages, Operation: OpUpdate, Check: Row(messageRecipient)},

		{Name: "cart_items_select_own", Table: TableCartItems, Operation: OpSelect, Check: Row(cartOwned), Using: usingColumn("cart_items.user_id")},
		{Name: "cart_items_insert_own", Table: TableCartItems, Operation: OpInsert, Check: Row(cartOwned)},
		{Name: "cart_items_update_own", Table: TableCartItems, Operation: OpUpdate, Check: Row(cartOwned)},
		{Name: "cart_items_delete_own", Table: TableCartItems, Operation: OpDelete, Check: Row(cartOwned)},

		{Name: "wishlist_select_authenticated", Table: TableWishlist, Operation: OpSelect, Check: Authenticated, Using: usingAuthenticated},
		{Name: "wishlist_insert_own", Table: TableWishlist, Operation: OpInsert, Check: Row(wishlistOwned)},
		{Name: "wishlist_delete_own", Table: TableWishlist, Operation: OpDelete, Check: Row(wishlistOwned)},

		{Name: "product_likes_select_authenticated", Table: TableProductLikes, Operation: OpSelect, Check: Authenticated, Using: usingAuthenticated},
		{Name: "product_likes_insert_own", Table: TableProductLikes, Operation: OpInsert, Check: Row(likeOwned)},
		{Name: "product_likes_delete_own", Table: TableProductLikes, Operation: OpDelete, Check: Row(likeOwned)},

		// comments are append-only: no update policy.
		{Name: "product_comments_select_authenticated", Table: TableProductComments, Operation: OpSelect, Check: Authenticated, Using: usingAuthenticated},
		{Name: "product_comments_insert_own", Table: TableProductComments, Operation: OpInsert, Check: Row(commentOwned)},
		{Name: "product_comments_delete_own", Table: TableProductComments, Operation: OpDelete, Check: Row(commentOwned)},

		{Name: "avatars_select_public", Table: TableAvatars, Operation: OpSelect, Check: Public},
		{Name: "avatars_insert_own_folder", Table: TableAvatars, Operation: OpInsert, Check: Row(avatarOwned)},
		{Name: "avatars_update_own_folder", Table: TableAvatars, Operation: OpUpdate, Check: Row(avatarOwned)},
		{Name: "avatars_delete_own_folder", Table: TableAvatars, Operation: OpDelete, Check: Row(avatarOwned)},
	}
}

// NewMarketplace builds the Set used by every service.
func NewMarketplace(opts ...Option) *Set {
	s, err := NewSet(MarketplacePolicies(), opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func sellerOwned(c Caller, s models.Seller) bool { return s.ProfileID == c.ID }
func productOwned(c Caller, p models.Product) bool { return p.SellerID == c.ID }
func orderBuyer(c Caller, o models.Order) bool { return o.BuyerID == c.ID }
func orderSeller(c Caller, o models.Order) bool { return o.SellerID == c.ID }
func messageSender(c Caller, m models.Message) bool { return m.SenderID == c.ID }
func messageRecipient(c Caller, m models.Message) bool { return m.RecipientID == c.ID }
func cartOwned(c Caller, i models.CartItem) bool { return i.UserID == c.ID }
func wishlistOwned(c Caller, w models.WishlistEntry) bool { return w.UserID == c.ID }
func likeOwned(c Caller, l models.ProductLike) bool { return l.UserID == c.ID }
func commentOwned(c Caller, cm models.ProductComment) bool { return cm.UserID == c.ID }

func avatarOwned(c Caller, o AvatarObject) bool {
	return c.Authenticated() && o.Owner() == c.ID.String()
}
