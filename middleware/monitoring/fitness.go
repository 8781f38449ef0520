package monitoring

import (
	"strings"
	"time"
)

// Rule é uma fitness function de latência. PathContains vazio casa com
// qualquer rota; Method vazio casa com qualquer método.
type Rule struct {
	Name         string        `mapstructure:"name"`
	PathContains string        `mapstructure:"path_contains"`
	Method       string        `mapstructure:"method"`
	Threshold    time.Duration `mapstructure:"threshold"`
}

func DefaultRules() []Rule {
	return []Rule{
		{Name: "search_response_time", PathContains: "/search", Threshold: 200 * time.Millisecond},
		{Name: "catalog_response_time", PathContains: "/papers/", Method: "GET", Threshold: 100 * time.Millisecond},
		{Name: "gateway_response_time", Threshold: 1000 * time.Millisecond},
	}
}

func (r Rule) Applies(method, path string) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, method) {
		return false
	}
	return r.PathContains == "" || strings.Contains(path, r.PathContains)
}

// Evaluate devolve, na ordem configurada, as regras violadas (elapsed
// estritamente acima do limite).
func Evaluate(rules []Rule, method, path string, elapsed time.Duration) []Rule {
	var fired []Rule
	for _, r := range rules {
		if r.Applies(method, path) && elapsed > r.Threshold {
			fired = append(fired, r)
		}
	}
	return fired
}
