package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava as decisões do rate limit em hashes do Redis:
//
//	<prefix>:total             allowed|denied
//	<prefix>:tier              <tier>:allowed|<tier>:denied
//	<prefix>:route             "<METHOD> <path>:allowed|denied"
//	<prefix>:minute:<yyyymmddhhmm>  allowed|denied   (com TTL)
//	<prefix>:key:<key>         allowed|denied         (opcional, com TTL)
//
// É só estatística: o contador que decide allow/deny continua em memória.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	// total, tier e route são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "paperly:ratelimit",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = clock.Now()
	}
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}

	pipe := s.rdb.Pipeline()
	s.incr(ctx, pipe, "total", outcome, false)
	if ev.Tier != "" {
		s.incr(ctx, pipe, "tier", string(ev.Tier)+":"+outcome, false)
	}
	if route := routeField(ev.Method, ev.Path); route != "" {
		s.incr(ctx, pipe, "route", route+":"+outcome, false)
	}
	if s.bucket == "minute" {
		s.incr(ctx, pipe, "minute:"+at.UTC().Format("200601021504"), outcome, true)
	}
	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			s.incr(ctx, pipe, "key:"+k, outcome, true)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats %s/%s: %w", ev.Tier, outcome, err)
	}
	return nil
}

func (s *RedisStatsStore) incr(ctx context.Context, pipe redis.Pipeliner, suffix, field string, expires bool) {
	key := s.prefix + ":" + suffix
	pipe.HIncrBy(ctx, key, field, 1)
	if expires && s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

func routeField(method, path string) string {
	return strings.TrimSpace(strings.TrimSpace(method) + " " + strings.TrimSpace(path))
}
