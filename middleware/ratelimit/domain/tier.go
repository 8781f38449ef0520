package domain

import (
	"fmt"
	"strings"
	"time"
)

// Tier é a classe de rate limit de uma requisição. Conjunto fechado.
type Tier string

const (
	TierAnonymous     Tier = "anonymous"
	TierAuthenticated Tier = "authenticated"
	TierAdmin         Tier = "admin"
)

var AllTiers = []Tier{TierAnonymous, TierAuthenticated, TierAdmin}

func (t Tier) Valid() bool {
	switch t {
	case TierAnonymous, TierAuthenticated, TierAdmin:
		return true
	}
	return false
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// ResolveTier deriva o tier a partir de uma identidade já autenticada.
// Não valida credenciais: quem chama já fez isso.
func ResolveTier(authenticated, admin bool) Tier {
	switch {
	case !authenticated:
		return TierAnonymous
	case admin:
		return TierAdmin
	default:
		return TierAuthenticated
	}
}

// Tiers mapeia cada tier para sua cota.
type Tiers map[Tier]TierLimit

func DefaultTiers() Tiers {
	return Tiers{
		TierAnonymous:     {Quota: 50, Period: time.Minute},
		TierAuthenticated: {Quota: 200, Period: time.Minute},
		TierAdmin:         {Quota: 1000, Period: time.Minute},
	}
}

// Limit retorna a cota do tier; tiers ausentes caem na cota anônima.
func (ts Tiers) Limit(t Tier) (TierLimit, bool) {
	if l, ok := ts[t]; ok {
		return l, true
	}
	l, ok := ts[TierAnonymous]
	return l, ok
}

func (ts Tiers) Validate() error {
	for _, t := range AllTiers {
		l, ok := ts[t]
		if !ok {
			return fmt.Errorf("tier %q is not configured", t)
		}
		if l.Quota <= 0 {
			return fmt.Errorf("tier %q: quota must be > 0", t)
		}
		if l.Period < time.Second {
			return fmt.Errorf("tier %q: period must be >= 1s", t)
		}
	}
	return nil
}
