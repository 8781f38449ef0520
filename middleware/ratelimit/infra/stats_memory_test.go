package infra

import (
	"context"
	"errors"
	"testing"

	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_AggregatesByRouteAndTier(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Tier: domain.TierAnonymous, Allowed: true, Method: "GET", Path: "/api/v1/search"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Tier: domain.TierAnonymous, Allowed: false, Method: "GET", Path: "/api/v1/search"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "b", Tier: domain.TierAdmin, Allowed: true, Method: "GET", Path: "/api/v1/status"})

	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, s.Total())
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByRoute()["GET /api/v1/search"])
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByTier()[domain.TierAnonymous])
	assert.Equal(t, Counters{Allowed: 1}, s.ByKey()["b"])
}

func TestMemoryStatsStore_SkipsKeysUnlessTracked(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "a", Allowed: true})

	assert.Empty(t, s.ByKey())
}

type failingStats struct{}

func (failingStats) Record(context.Context, domain.StatsEvent) error {
	return errors.New("redis down")
}

func TestMultiStatsStore_RecordsEverywhereAndJoinsErrors(t *testing.T) {
	mem := NewMemoryStatsStore()
	multi := MultiStatsStore{failingStats{}, nil, mem}

	err := multi.Record(context.Background(), domain.StatsEvent{Tier: domain.TierAdmin, Allowed: true})
	require.Error(t, err)
	assert.Equal(t, int64(1), mem.Total().Allowed)
}
