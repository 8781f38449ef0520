package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	entriesDesc = prometheus.NewDesc("paperly_cache_entries",
		"Number of live entries in the response cache.", nil, nil)
	accessDesc = prometheus.NewDesc("paperly_cache_access_total",
		"Cache lookups by result.", []string{"type"}, nil)
	expiredDesc = prometheus.NewDesc("paperly_cache_expired_total",
		"Entries evicted after expiring.", nil, nil)
)

// Collector exporta os contadores do TTLCache no momento do scrape.
type Collector struct {
	cache *TTLCache
}

var _ prometheus.Collector = &Collector{}

func NewCollector(c *TTLCache) *Collector {
	return &Collector{cache: c}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- entriesDesc
	ch <- accessDesc
	ch <- expiredDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(s.Entries))
	ch <- prometheus.MustNewConstMetric(accessDesc, prometheus.CounterValue, float64(s.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(accessDesc, prometheus.CounterValue, float64(s.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(expiredDesc, prometheus.CounterValue, float64(s.Expired))
}
