package application

import (
	"time"

	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
)

// Service concentra a regra de aplicação do rate limit por tier.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store domain.CounterStore
	Tiers domain.Tiers
}

// Decide contabiliza a requisição na janela atual de (key, tier).
// Quando a contagem pós-incremento passa da cota, retorna
// *domain.QuotaExceededError junto com a decisão negada.
func (s Service) Decide(key domain.Key, tier domain.Tier) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Tier: tier}, nil
	}
	tiers := s.Tiers
	if tiers == nil {
		tiers = domain.DefaultTiers()
	}
	limit, ok := tiers.Limit(tier)
	if !ok {
		return domain.Decision{Allowed: true, Tier: tier}, nil
	}

	usage := s.Store.Take(key, tier, limit)
	dec := domain.Decision{
		Allowed:   usage.Count <= limit.Quota,
		Tier:      tier,
		Limit:     limit.Quota,
		Remaining: max(0, limit.Quota-usage.Count),
		Reset:     usage.Reset,
	}
	if dec.Allowed {
		return dec, nil
	}

	dec.RetryAfter = usage.Reset.Sub(clock.Now())
	if dec.RetryAfter < time.Second {
		dec.RetryAfter = time.Second
	}
	return dec, &domain.QuotaExceededError{
		Tier:   tier,
		Limit:  limit,
		Reset:  usage.Reset,
		Client: key,
	}
}
