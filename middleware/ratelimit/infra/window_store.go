package infra

import (
	"sync"
	"time"

	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
)

// WindowStore é o contador de janela fixa: (chave, tier, floor(now/period)).
//
// As janelas são alinhadas ao tempo absoluto, então numa virada de janela um
// cliente pode passar até 2x a cota em sequência. É o comportamento esperado
// de janela fixa.
//
// Não existe goroutine de limpeza: janelas com índice < atual-1 são removidas
// no próprio Take, uma varredura por avanço de janela.
type WindowStore struct {
	mu      sync.Mutex
	windows map[windowKey]int
	// última janela varrida, por período
	swept map[time.Duration]int64
}

type windowKey struct {
	key    domain.Key
	tier   domain.Tier
	period time.Duration
	index  int64
}

func NewWindowStore() *WindowStore {
	return &WindowStore{
		windows: make(map[windowKey]int),
		swept:   make(map[time.Duration]int64),
	}
}

// Take implementa domain.CounterStore.
func (s *WindowStore) Take(key domain.Key, tier domain.Tier, limit domain.TierLimit) domain.Usage {
	now := clock.Now()
	idx := windowIndex(now, limit.Period)

	s.mu.Lock()
	defer s.mu.Unlock()

	k := windowKey{key: key, tier: tier, period: limit.Period, index: idx}
	s.windows[k]++
	count := s.windows[k]

	if last, ok := s.swept[limit.Period]; !ok || idx > last {
		s.swept[limit.Period] = idx
		s.collect(now)
	}

	return domain.Usage{
		Count: count,
		Reset: time.Unix(0, (idx+1)*int64(limit.Period)),
	}
}

// collect remove janelas mais de uma janela atrás da atual. Chamado com mu travado.
func (s *WindowStore) collect(now time.Time) {
	for k := range s.windows {
		if k.index < windowIndex(now, k.period)-1 {
			delete(s.windows, k)
		}
	}
}

// Len retorna o número de janelas vivas no mapa.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func windowIndex(now time.Time, period time.Duration) int64 {
	return now.UnixNano() / int64(period)
}
