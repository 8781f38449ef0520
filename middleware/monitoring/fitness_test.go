package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func names(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Name)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name    string
		method  string
		path    string
		elapsed time.Duration
		want    []string
	}{
		{"fast search", "GET", "/api/v1/search", 50 * time.Millisecond, []string{}},
		{"slow search", "GET", "/api/v1/search", 250 * time.Millisecond, []string{"search_response_time"}},
		{"slow paper", "GET", "/api/v1/papers/1", 150 * time.Millisecond, []string{"catalog_response_time"}},
		{"paper via POST ignores catalog rule", "POST", "/api/v1/papers/1", 150 * time.Millisecond, []string{}},
		{"very slow anything", "GET", "/api/v1/status", 1001 * time.Millisecond, []string{"gateway_response_time"}},
		{"very slow search fires both in order", "GET", "/api/v1/search", 2 * time.Second,
			[]string{"search_response_time", "gateway_response_time"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Evaluate(rules, tt.method, tt.path, tt.elapsed)))
		})
	}
}

func TestRule_MethodMatchIsCaseInsensitive(t *testing.T) {
	r := Rule{Method: "get", PathContains: "/papers/"}
	assert.True(t, r.Applies("GET", "/api/v1/papers/x"))
	assert.False(t, r.Applies("GET", "/api/v1/library"))
}
