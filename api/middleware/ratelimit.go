package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/marketplace-backend/pkg/redis"
)

// RateLimiter counts hits in fixed windows.
type RateLimiter interface {
	HitWindow(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error)
}

// RateRule throttles one surface by client address and, when PerEmail is
// set, by the email in the JSON body. A zero limit disables that dimension.
type RateRule struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (r RateRule) active() bool {
	return r.Window > 0 && (r.PerIP > 0 || r.PerEmail > 0)
}

func (r RateRule) label() string {
	if name := strings.ToLower(strings.TrimSpace(r.Name)); name != "" {
		return name
	}
	return "auth"
}

type rateCheck struct {
	dimension string
	value     string
	limit     int
}

// RateLimit rejects requests over the rule with 429 and a Retry-After
// header. Emails are hashed before they are used as keys.
func RateLimit(rule RateRule, store RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rule.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var checks []rateCheck
			if rule.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					checks = append(checks, rateCheck{"ip", ip, rule.PerIP})
				}
			}
			if rule.PerEmail > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailFrom(body); email != "" {
					checks = append(checks, rateCheck{"email", digest(email), rule.PerEmail})
				}
			}

			for _, c := range checks {
				scope := rule.label() + ":" + c.dimension + ":" + c.value
				win, err := store.HitWindow(ctx, scope, int64(c.limit), rule.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !win.Allowed {
					refuse(ctx, logg, w, rule, c, win)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func refuse(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, rule RateRule, c rateCheck, win pkgredis.Window) {
	wait := win.RetryAfter
	if wait <= 0 {
		wait = rule.Window
	}
	seconds := int(math.Ceil(wait.Seconds()))

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"rule":      rule.label(),
			"dimension": c.dimension,
			"attempts":  win.Count,
			"limit":     c.limit,
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").
		WithDetails(map[string]any{"scope": c.dimension, "retry_after_seconds": seconds}))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFrom(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
