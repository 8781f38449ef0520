package infra

import (
	"context"
	"math"
	"sync"
	"time"

	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"golang.org/x/time/rate"
)

// TokenBucketStore é a alternativa ao WindowStore baseada em token-bucket
// (x/time/rate), com um limiter por (chave, tier) e limpeza periódica.
//
// Muda o comportamento observável: a cota é reabastecida continuamente
// (Quota/Period tokens por segundo, burst = Quota), então não existe a rajada
// de 2x na virada de janela.
type TokenBucketStore struct {
	mu           sync.Mutex
	entries      map[bucketKey]*bucketEntry
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucketKey struct {
	key  domain.Key
	tier domain.Tier
}

type bucketEntry struct {
	lim      *rate.Limiter
	limit    domain.TierLimit
	lastSeen time.Time
}

type TokenBucketOption func(*TokenBucketStore)

func WithIdleTTL(d time.Duration) TokenBucketOption {
	return func(s *TokenBucketStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) TokenBucketOption {
	return func(s *TokenBucketStore) { s.cleanupEvery = d }
}

func NewTokenBucketStore(opts ...TokenBucketOption) *TokenBucketStore {
	s := &TokenBucketStore{
		entries:      make(map[bucketKey]*bucketEntry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Take implementa domain.CounterStore.
//
// Count é derivado dos tokens consumidos; uma requisição negada reporta Quota+1.
func (s *TokenBucketStore) Take(key domain.Key, tier domain.Tier, limit domain.TierLimit) domain.Usage {
	now := clock.Now()
	every := rate.Limit(float64(limit.Quota) / limit.Period.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	k := bucketKey{key: key, tier: tier}
	ent, ok := s.entries[k]
	if !ok || ent.limit != limit {
		ent = &bucketEntry{lim: rate.NewLimiter(every, limit.Quota), limit: limit}
		s.entries[k] = ent
	}
	ent.lastSeen = now

	allowed := ent.lim.AllowN(now, 1)
	tokens := ent.lim.TokensAt(now)

	count := limit.Quota + 1
	if allowed {
		count = limit.Quota - int(math.Floor(tokens))
	}

	missing := float64(limit.Quota) - tokens
	reset := now
	if missing > 0 {
		reset = now.Add(time.Duration(missing / float64(every) * float64(time.Second)))
	}
	return domain.Usage{Count: count, Reset: reset}
}

func (s *TokenBucketStore) Cleanup() {
	cutoff := clock.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *TokenBucketStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
