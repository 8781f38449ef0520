package ratelimit

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"paperly-gateway/middleware/ratelimit/application"
	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"go.uber.org/zap"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderTier      = "X-RateLimit-Tier"
)

type KeyFunc func(r *http.Request) string

// TierFunc resolve o tier da requisição. Deve olhar apenas para a identidade
// já autenticada (ex.: colocada no contexto por um middleware anterior).
type TierFunc func(r *http.Request) domain.Tier

type Options struct {
	Store              domain.CounterStore
	Tiers              domain.Tiers
	Stats              domain.StatsStore
	KeyFn              KeyFunc
	TierFn             TierFunc
	KeyHeader          string
	TrustXForwardedFor bool
	RejectStatus       int
	Logger             *zap.Logger
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func anonymousTier(*http.Request) domain.Tier { return domain.TierAnonymous }

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.TierFn == nil {
		opts.TierFn = anonymousTier
	}
	if opts.Tiers == nil {
		opts.Tiers = domain.DefaultTiers()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("ratelimit")

	svc := application.Service{
		Store: opts.Store,
		Tiers: opts.Tiers,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))
			tier := opts.TierFn(r)

			dec, err := svc.Decide(key, tier)
			if opts.Stats != nil {
				if serr := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     key,
					Tier:    tier,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      clock.Now(),
				}); serr != nil {
					log.Warn("rate limit stats record failed", zap.Error(serr))
				}
			}

			if dec.Limit > 0 {
				h := w.Header()
				h.Set(HeaderLimit, formatInt(dec.Limit))
				h.Set(HeaderRemaining, formatInt(dec.Remaining))
				h.Set(HeaderReset, formatUnix(dec.Reset))
				h.Set(HeaderTier, string(dec.Tier))
			}

			var quotaErr *domain.QuotaExceededError
			if errors.As(err, &quotaErr) {
				log.Warn("rate limit exceeded",
					zap.String("key", string(key)),
					zap.String("tier", string(tier)),
					zap.Int("limit", quotaErr.Limit.Quota),
					zap.Duration("period", quotaErr.Limit.Period))
				w.Header().Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
				writeRejection(w, opts.RejectStatus, quotaErr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds arredonda para cima: um cliente que respeita o header
// nunca volta antes do reset.
func retryAfterSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

type rejectionBody struct {
	Error rejectionDetail `json:"error"`
}

type rejectionDetail struct {
	Code          int    `json:"code"`
	Message       string `json:"message"`
	Tier          string `json:"tier"`
	Limit         int    `json:"limit"`
	PeriodSeconds int64  `json:"period_seconds"`
	Reset         int64  `json:"reset"`
}

func writeRejection(w http.ResponseWriter, status int, qe *domain.QuotaExceededError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejectionBody{Error: rejectionDetail{
		Code:          status,
		Message:       qe.Error(),
		Tier:          string(qe.Tier),
		Limit:         qe.Limit.Quota,
		PeriodSeconds: int64(qe.Limit.Period / time.Second),
		Reset:         qe.Reset.Unix(),
	}})
}
