package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"fmt"
	"time"
)

type Key string

// TierLimit é a cota de um tier: Quota requisições a cada Period.
type TierLimit struct {
	Quota  int
	Period time.Duration
}

// Usage é o resultado de contabilizar uma requisição no store.
type Usage struct {
	// Count inclui a requisição atual (valor pós-incremento).
	Count int
	// Reset é o instante em que a janela atual termina.
	Reset time.Time
}

// CounterStore contabiliza requisições por (chave, tier).
//
// O incremento e a leitura do contador precisam ser um único passo atômico:
// cada chamada concorrente deve observar um Count distinto.
type CounterStore interface {
	Take(key Key, tier Tier, limit TierLimit) Usage
}

type Decision struct {
	Allowed bool
	Tier    Tier
	Limit   int
	// Remaining = max(0, Limit - Count).
	Remaining int
	Reset     time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// QuotaExceededError é a rejeição visível ao cliente (HTTP 429).
type QuotaExceededError struct {
	Tier   Tier
	Limit  TierLimit
	Reset  time.Time
	Client Key
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded for %s tier. Limit: %d/%ds",
		e.Tier, e.Limit.Quota, int64(e.Limit.Period/time.Second))
}
