package api

import (
	"net/http"

	"go.uber.org/zap"

	"paperly-gateway/auth"
	"paperly-gateway/middleware/monitoring"
	"paperly-gateway/middleware/ratelimit"
	"paperly-gateway/middleware/ratelimit/domain"
)

type PipelineOptions struct {
	Router http.Handler

	Tokens auth.Resolver

	// Limiter nil desliga o rate limit.
	Limiter   domain.CounterStore
	Tiers     domain.Tiers
	Stats     domain.StatsStore
	KeyHeader string
	TrustXFF  bool

	Concurrency ratelimit.ConcurrencyOptions

	Sink  monitoring.Sink
	Rules []monitoring.Rule

	Logger *zap.Logger
}

// BuildHandler monta, de fora para dentro: monitoring -> identidade ->
// rate limit -> limite de concorrência -> router.
func BuildHandler(o PipelineOptions) http.Handler {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Concurrency.Logger == nil {
		o.Concurrency.Logger = o.Logger
	}

	h := o.Router
	h = ratelimit.ConcurrencyMiddleware(o.Concurrency)(h)
	if o.Limiter != nil {
		h = ratelimit.Middleware(ratelimit.Options{
			Store:  o.Limiter,
			Tiers:  o.Tiers,
			Stats:  o.Stats,
			KeyFn:  clientKey(ratelimit.DefaultKeyFunc(o.KeyHeader, o.TrustXFF)),
			TierFn: clientTier,
			Logger: o.Logger,
		})(h)
	}
	h = auth.Middleware(o.Tokens, o.Logger)(h)
	h = monitoring.Middleware(monitoring.Options{
		Sink:   o.Sink,
		Rules:  o.Rules,
		Logger: o.Logger,
	})(h)
	return h
}

// clientKey usa o usuário autenticado como chave; anônimos caem no fallback
// (header configurado, XFF ou IP).
func clientKey(fallback ratelimit.KeyFunc) ratelimit.KeyFunc {
	return func(r *http.Request) string {
		if id, ok := auth.FromContext(r.Context()); ok {
			return id.ClientKey()
		}
		return fallback(r)
	}
}

func clientTier(r *http.Request) domain.Tier {
	id, ok := auth.FromContext(r.Context())
	return domain.ResolveTier(ok, id.IsAdmin())
}
