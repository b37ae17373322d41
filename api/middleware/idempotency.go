package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const (
	defaultReplayTTL = 24 * time.Hour
	moneyReplayTTL   = 7 * 24 * time.Hour
)

// ReplayStore holds the claims and stored responses behind Idempotency-Key.
type ReplayStore interface {
	ClaimReplay(ctx context.Context, key, requestHash string) (*pkgredis.Replay, bool, error)
	StoreReplay(ctx context.Context, key string, rec pkgredis.Replay, ttl time.Duration) error
	ReleaseReplay(ctx context.Context, key string) error
}

type replayRoute struct {
	method  string
	pattern string
	ttl     time.Duration
}

// Writes that create orders are kept for a week; the rest use the
// configured TTL.
var replayRoutes = []replayRoute{
	{http.MethodPost, "/api/v1/orders", moneyReplayTTL},
	{http.MethodPost, "/api/v1/checkout", moneyReplayTTL},
	{http.MethodPost, "/api/v1/messages", 0},
	{http.MethodPost, "/api/v1/me/become-seller", 0},
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	for _, rt := range replayRoutes {
		if rt.method == method && rt.pattern == pattern {
			return rt.ttl, true
		}
	}
	return 0, false
}

// Idempotency makes covered writes safe to retry. The first request with a
// key claims it; a concurrent duplicate is refused while the first is in
// flight, a later one gets the stored response, and a different body under
// the same key is rejected. Server errors and panics release the claim.
func Idempotency(store ReplayStore, fallbackTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if fallbackTTL <= 0 {
		fallbackTTL = defaultReplayTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			pattern := routePattern(r)
			ttl, covered := routeTTL(r.Method, pattern)
			if !covered || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if ttl <= 0 {
				ttl = fallbackTTL
			}

			idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idemKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
						WithDetails(map[string]any{"limit_bytes": tooLarge.Limit}))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])

			key := pkgredis.ReplayKey(UserIDFromContext(ctx), r.Method, pattern, idemKey)
			existing, claimed, err := store.ClaimReplay(ctx, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				switch {
				case existing.RequestHash != hash:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.Pending:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
				default:
					replay(w, existing)
				}
				return
			}

			// the claim outlives the request context
			bg := context.WithoutCancel(ctx)
			release := func() {
				if err := store.ReleaseReplay(bg, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency claim", err)
				}
			}

			rec := &responseCapture{ResponseWriter: w}
			func() {
				defer func() {
					if p := recover(); p != nil {
						release()
						panic(p)
					}
				}()
				next.ServeHTTP(rec, r)
			}()

			if rec.status >= http.StatusInternalServerError {
				release()
				return
			}
			stored := pkgredis.Replay{
				RequestHash: hash,
				Status:      rec.statusOrOK(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.StoreReplay(bg, key, stored, ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, rec *pkgredis.Replay) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
