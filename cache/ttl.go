// Package cache implementa um cache em memória com expiração por entrada.
//
// A expiração é preguiçosa: uma leitura que encontra a entrada vencida a
// remove antes de responder "ausente". Não há timer em background nem limite
// de tamanho; a memória cresce com o número de chaves distintas ainda não lidas
// após vencer.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mailgun/holster/v4/clock"
)

// DefaultTTL é usado quando Set recebe ttl <= 0.
const DefaultTTL = 300 * time.Second

type entry struct {
	value     any
	expiresAt time.Time
}

// visível enquanto now < expiresAt
func (e entry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Expired int64   `json:"expired"`
	HitRate float64 `json:"hit_rate"`
}

type TTLCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64
}

type Option func(*TTLCache)

func WithDefaultTTL(d time.Duration) Option {
	return func(c *TTLCache) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries:    make(map[string]entry),
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	now := clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && e.live(now) {
		c.hits.Add(1)
		return e.value, true
	}
	if ok {
		c.evict(key, now)
	}
	c.misses.Add(1)
	return nil, false
}

// evict remove a chave só se ela continuar vencida: um Set concorrente entre
// o RUnlock e o Lock não pode ser apagado.
func (c *TTLCache) evict(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !e.live(now) {
		delete(c.entries, key)
		c.expired.Add(1)
	}
}

func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := entry{value: value, expiresAt: clock.Now().Add(ttl)}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete remove a chave; retorna se ela existia (vencida ou não).
func (c *TTLCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// DeletePrefix remove todas as chaves com o prefixo ("" limpa tudo) e retorna
// quantas existiam.
func (c *TTLCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Stats conta apenas entradas vivas; as vencidas ainda não lidas continuam
// ocupando memória mas não entram em Entries.
func (c *TTLCache) Stats() Stats {
	now := clock.Now()

	c.mu.RLock()
	n := 0
	for _, e := range c.entries {
		if e.live(now) {
			n++
		}
	}
	c.mu.RUnlock()

	s := Stats{
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Expired: c.expired.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
