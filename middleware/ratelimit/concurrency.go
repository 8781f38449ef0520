package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"paperly-gateway/middleware/ratelimit/application"
	"paperly-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *zap.Logger
}

// ConcurrencyMiddleware limita as requisições em voo. Sem vaga dentro de
// AcquireTimeout responde RejectStatus (503); se o cliente desistiu antes,
// apenas retorna.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("concurrency")

	svc := application.ConcurrencyService{
		Pool:           infra.NewSemaphorePool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Warn("no in-flight slot", zap.Int("max", opts.Max), zap.Error(err))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
