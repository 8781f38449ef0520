package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

type Loader func(ctx context.Context) (any, error)

// Memoizer junta misses concorrentes da mesma chave numa única chamada ao
// loader. Erros do loader não são guardados.
type Memoizer struct {
	cache *TTLCache
	group singleflight.Group
}

func NewMemoizer(c *TTLCache) *Memoizer {
	return &Memoizer{cache: c}
}

func (m *Memoizer) Cache() *TTLCache { return m.cache }

// Get retorna o valor e se ele veio do cache.
func (m *Memoizer) Get(ctx context.Context, key string, ttl time.Duration, load Loader) (any, bool, error) {
	if v, ok := m.cache.Get(key); ok {
		return v, true, nil
	}

	// o loader é compartilhado entre quem entrou no mesmo miss; o cancelamento
	// de um cliente não pode derrubar os outros.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := m.group.Do(key, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		m.cache.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}
