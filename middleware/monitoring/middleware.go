package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mailgun/holster/v4/clock"
	"go.uber.org/zap"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderResponseTime  = "X-Response-Time"
	HeaderFitnessStatus = "X-Fitness-Status"

	FitnessPass      = "PASS"
	FitnessViolation = "VIOLATION"
)

type ctxKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type Options struct {
	Sink   Sink
	Rules  []Rule
	Logger *zap.Logger
	// NewID gera o request id; padrão uuid v4.
	NewID func() string
}

var internalErrorBody = []byte(`{"error":{"code":500,"message":"Internal server error"}}` + "\n")

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	log := opts.Logger.Named("monitoring")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := clock.Now()
			id := opts.NewID()
			r = r.WithContext(WithRequestID(r.Context(), id))

			bw := newBufferedWriter(w)
			defer bw.release()

			if p := serve(next, bw, r); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.Error("handler panic",
					zap.String("request_id", id),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("elapsed", clock.Since(start)),
					zap.Any("panic", p))
				bw.discard()
				bw.Header().Set("Content-Type", "application/json; charset=utf-8")
				bw.WriteHeader(http.StatusInternalServerError)
				_, _ = bw.Write(internalErrorBody)
			}

			elapsed := clock.Since(start)
			status := bw.Status()
			fired := Evaluate(opts.Rules, r.Method, r.URL.Path, elapsed)
			record(log, opts.Sink, r.Method, r.URL.Path, status, elapsed, fired)

			for _, rule := range fired {
				log.Warn("Fitness function violation",
					zap.String("request_id", id),
					zap.String("function", rule.Name),
					zap.String("path", r.URL.Path),
					zap.Duration("threshold", rule.Threshold),
					zap.Float64("duration_ms", ms(elapsed)))
			}

			h := bw.Header()
			h.Set(HeaderRequestID, id)
			h.Set(HeaderResponseTime, fmt.Sprintf("%.2fms", ms(elapsed)))
			if len(fired) > 0 {
				h.Set(HeaderFitnessStatus, FitnessViolation)
			} else {
				h.Set(HeaderFitnessStatus, FitnessPass)
			}

			if err := bw.flush(); err != nil {
				log.Debug("write response", zap.String("request_id", id), zap.Error(err))
			}

			log.Info("Request completed",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Float64("duration_ms", ms(elapsed)))
		})
	}
}

func serve(next http.Handler, w http.ResponseWriter, r *http.Request) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	next.ServeHTTP(w, r)
	return nil
}

// record nunca deixa falha do sink chegar no cliente.
func record(log *zap.Logger, sink Sink, method, path string, status int, elapsed time.Duration, fired []Rule) {
	defer func() {
		if p := recover(); p != nil {
			log.Warn("metrics sink panic", zap.Any("panic", p))
		}
	}()

	if err := sink.IncRequest(method, path, status); err != nil {
		log.Warn("metrics sink failed", zap.String("metric", "http_requests_total"), zap.Error(err))
	}
	if err := sink.ObserveDuration(method, path, elapsed); err != nil {
		log.Warn("metrics sink failed", zap.String("metric", "http_request_duration_seconds"), zap.Error(err))
	}
	for _, rule := range fired {
		if err := sink.IncViolation(rule.Name, path); err != nil {
			log.Warn("metrics sink failed", zap.String("metric", "fitness_function_violations_total"), zap.Error(err))
		}
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
