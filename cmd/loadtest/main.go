// loadtest dispara uma rajada de requisições contra o gateway e resume os
// status, tiers e resultados de fitness devolvidos.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"paperly-gateway/logging"
	"paperly-gateway/middleware/monitoring"
	"paperly-gateway/middleware/ratelimit"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	URL         string
	Requests    int
	Concurrency int
	Token       string
	KeyHeader   string
	Key         string
	Timeout     time.Duration
}

type report struct {
	mu       sync.Mutex
	Status   map[int]int
	Tiers    map[string]int
	Fitness  map[string]int
	Failures int
	Elapsed  time.Duration
}

func newReport() *report {
	return &report{Status: map[int]int{}, Tiers: map[string]int{}, Fitness: map[string]int{}}
}

func (r *report) add(resp *http.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status[resp.StatusCode]++
	if t := resp.Header.Get(ratelimit.HeaderTier); t != "" {
		r.Tiers[t]++
	}
	if f := resp.Header.Get(monitoring.HeaderFitnessStatus); f != "" {
		r.Fitness[f]++
	}
}

func (r *report) fail() {
	r.mu.Lock()
	r.Failures++
	r.mu.Unlock()
}

// burst envia o.Requests requisições GET, no máximo o.Concurrency em voo.
// Falhas de transporte são contadas, não abortam a rajada.
func burst(ctx context.Context, client *http.Client, o options) (*report, error) {
	if o.Requests <= 0 {
		return nil, errors.New("requests must be > 0")
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}

	rep := newReport()
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for i := 0; i < o.Requests; i++ {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.URL, nil)
			if err != nil {
				return err
			}
			if o.Token != "" {
				req.Header.Set("Authorization", "Bearer "+o.Token)
			}
			if o.KeyHeader != "" && o.Key != "" {
				req.Header.Set(o.KeyHeader, o.Key)
			}
			resp, err := client.Do(req)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				rep.fail()
				return nil
			}
			_ = resp.Body.Close()
			rep.add(resp)
			return nil
		})
	}
	err := g.Wait()
	rep.Elapsed = time.Since(start)
	return rep, err
}

func main() {
	var o options
	flag.StringVar(&o.URL, "url", "http://localhost:3000/api/v1/search?q=learning", "target URL")
	flag.IntVar(&o.Requests, "n", 60, "total requests")
	flag.IntVar(&o.Concurrency, "c", 10, "requests in flight")
	flag.StringVar(&o.Token, "token", "", "bearer token (authenticated/admin tier)")
	flag.StringVar(&o.KeyHeader, "key-header", "", "client key header, if the gateway uses one")
	flag.StringVar(&o.Key, "key", "", "client key value")
	flag.DurationVar(&o.Timeout, "timeout", 10*time.Second, "per-request timeout")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logging.New(logging.Config{Level: *level, Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep, err := burst(ctx, &http.Client{Timeout: o.Timeout}, o)
	if err != nil {
		log.Fatal("burst failed", zap.Error(err))
	}

	codes := make([]int, 0, len(rep.Status))
	for code := range rep.Status {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		log.Info("status", zap.Int("code", code), zap.Int("count", rep.Status[code]))
	}
	log.Info("burst finished",
		zap.String("url", o.URL),
		zap.Int("requests", o.Requests),
		zap.Any("tiers", rep.Tiers),
		zap.Any("fitness", rep.Fitness),
		zap.Int("transport_failures", rep.Failures),
		zap.Duration("elapsed", rep.Elapsed))
}
