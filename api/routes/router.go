package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/internal/auth"
	"github.com/angelmondragon/marketplace-backend/internal/avatars"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/engagement"
	"github.com/angelmondragon/marketplace-backend/internal/messages"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/internal/sellers"
	"github.com/angelmondragon/marketplace-backend/internal/wishlist"
	"github.com/angelmondragon/marketplace-backend/pkg/auth/session"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

// Services are the domain services mounted by the router. A nil service
// still routes; its handlers answer DEPENDENCY_ERROR.
type Services struct {
	Auth       auth.Service
	Profiles   profiles.Service
	Sellers    sellers.Service
	Products   products.Service
	Cart       cart.Service
	Orders     orders.Service
	Checkout   checkout.Service
	Wishlist   wishlist.Service
	Messages   messages.Service
	Engagement engagement.Service
	Avatars    avatars.Service
}

type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Redis          *redis.Client
	Sessions       session.AccessSessionChecker
	Roles          middleware.RoleResolver
	Ready          map[string]controllers.Pinger
	Services       Services
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	svc := deps.Services

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// a nil *redis.Client must reach the middlewares as nil interfaces
	var (
		replays middleware.ReplayStore
		limiter middleware.RateLimiter
	)
	if deps.Redis != nil {
		replays, limiter = deps.Redis, deps.Redis
	}
	idem := middleware.Idempotency(replays, cfg.Idempotency.TTL, logg)
	limits := cfg.AuthRateLimit
	loginLimit := middleware.RateLimit(middleware.RateRule{
		Name: "login", Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit,
	}, limiter, logg)
	registerLimit := middleware.RateLimit(middleware.RateRule{
		Name: "register", Window: limits.RegisterWindow, PerIP: limits.RegisterIPLimit, PerEmail: limits.RegisterEmailLimit,
	}, limiter, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if cfg.Metrics.Enabled && deps.MetricsHandler != nil {
		r.Handle(cfg.Metrics.Path, deps.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(registerLimit).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.With(loginLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, deps.Roles, logg))

		// Public reads. Policies decide what an anonymous caller may see.
		r.Get("/api/v1/products", controllers.ProductList(svc.Products, logg))
		r.Get("/api/v1/products/{productId}", controllers.ProductGet(svc.Products, logg))
		r.Get("/api/v1/sellers", controllers.SellerList(svc.Sellers, logg))
		r.Get("/api/v1/sellers/{sellerId}", controllers.SellerGet(svc.Sellers, logg))
		r.Get("/api/v1/profiles/{profileId}", controllers.ProfileGet(svc.Profiles, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))

			r.Get("/api/v1/me", controllers.ProfileMe(svc.Profiles, logg))
			r.Patch("/api/v1/me", controllers.ProfileUpdateMe(svc.Profiles, logg))
			r.With(idem).Post("/api/v1/me/become-seller", controllers.ProfileBecomeSeller(svc.Profiles, logg))
			r.Post("/api/v1/me/back-to-buyer", controllers.ProfileBackToBuyer(svc.Profiles, logg))
			r.Post("/api/v1/me/avatar", controllers.AvatarUpload(svc.Avatars, int64(cfg.Storage.MaxUploadMB)<<20, logg))
			r.Delete("/api/v1/me/avatar", controllers.AvatarDelete(svc.Avatars, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleSeller, logg))
				r.Patch("/api/v1/me/seller", controllers.SellerUpdateMine(svc.Sellers, logg))
				r.Get("/api/v1/me/products", controllers.ProductListMine(svc.Products, logg))
			})

			r.Post("/api/v1/products", controllers.ProductCreate(svc.Products, logg))
			r.Patch("/api/v1/products/{productId}", controllers.ProductUpdate(svc.Products, logg))
			r.Delete("/api/v1/products/{productId}", controllers.ProductDelete(svc.Products, logg))

			r.Get("/api/v1/products/{productId}/likes", controllers.LikeSummary(svc.Engagement, logg))
			r.Post("/api/v1/products/{productId}/likes", controllers.LikeToggle(svc.Engagement, logg))
			r.Get("/api/v1/products/{productId}/comments", controllers.CommentList(svc.Engagement, logg))
			r.Post("/api/v1/products/{productId}/comments", controllers.CommentCreate(svc.Engagement, logg))
			r.Delete("/api/v1/comments/{commentId}", controllers.CommentDelete(svc.Engagement, logg))

			r.Get("/api/v1/cart", controllers.CartFetch(svc.Cart, logg))
			r.Delete("/api/v1/cart", controllers.CartClear(svc.Cart, logg))
			r.Post("/api/v1/cart/items", controllers.CartAdd(svc.Cart, logg))
			r.Patch("/api/v1/cart/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
			r.Delete("/api/v1/cart/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
			r.With(idem).Post("/api/v1/checkout", controllers.Checkout(svc.Checkout, logg))

			r.Get("/api/v1/orders", controllers.OrderList(svc.Orders, logg))
			r.With(idem).Post("/api/v1/orders", controllers.OrderCreate(svc.Orders, logg))
			r.Get("/api/v1/orders/{orderId}", controllers.OrderGet(svc.Orders, logg))
			r.Patch("/api/v1/orders/{orderId}/status", controllers.OrderUpdateStatus(svc.Orders, logg))

			r.Get("/api/v1/wishlist", controllers.WishlistFetch(svc.Wishlist, logg))
			r.Get("/api/v1/wishlist/ids", controllers.WishlistIDs(svc.Wishlist, logg))
			r.Get("/api/v1/wishlist/{productId}", controllers.WishlistStatus(svc.Wishlist, logg))
			r.Post("/api/v1/wishlist/{productId}/toggle", controllers.WishlistToggle(svc.Wishlist, logg))

			r.Get("/api/v1/messages", controllers.MessageInbox(svc.Messages, logg))
			r.With(idem).Post("/api/v1/messages", controllers.MessageSend(svc.Messages, logg))
			r.Get("/api/v1/messages/unread-count", controllers.MessageUnreadCount(svc.Messages, logg))
			r.Get("/api/v1/messages/{messageId}", controllers.MessageGet(svc.Messages, logg))
			r.Post("/api/v1/messages/{messageId}/read", controllers.MessageMarkRead(svc.Messages, logg))
			r.Get("/api/v1/conversations/{profileId}", controllers.MessageConversation(svc.Messages, logg))
		})
	})

	return r
}
