package infra

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"paperly-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// início de janela de 60s, para os testes não dependerem do relógio real
var windowStart = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestWindowStore_CountsWithinWindowAndResetsOnRollover(t *testing.T) {
	defer clock.Freeze(windowStart).Unfreeze()

	s := NewWindowStore()
	limit := domain.TierLimit{Quota: 5, Period: time.Minute}

	for i := 1; i <= 6; i++ {
		u := s.Take("10.0.0.1", domain.TierAnonymous, limit)
		assert.Equal(t, i, u.Count)
	}

	clock.Advance(time.Minute)

	u := s.Take("10.0.0.1", domain.TierAnonymous, limit)
	assert.Equal(t, 1, u.Count, "counter must restart in the next window")
}

func TestWindowStore_ResetIsNextWindowBoundary(t *testing.T) {
	defer clock.Freeze(windowStart.Add(17 * time.Second)).Unfreeze()

	s := NewWindowStore()
	u := s.Take("k", domain.TierAnonymous, domain.TierLimit{Quota: 50, Period: time.Minute})

	assert.Equal(t, windowStart.Add(time.Minute).Unix(), u.Reset.Unix())
}

func TestWindowStore_KeysAndTiersAreIndependent(t *testing.T) {
	defer clock.Freeze(windowStart).Unfreeze()

	s := NewWindowStore()
	limit := domain.TierLimit{Quota: 1, Period: time.Minute}

	assert.Equal(t, 1, s.Take("a", domain.TierAnonymous, limit).Count)
	assert.Equal(t, 1, s.Take("b", domain.TierAnonymous, limit).Count)
	assert.Equal(t, 1, s.Take("a", domain.TierAuthenticated, limit).Count)
	assert.Equal(t, 2, s.Take("a", domain.TierAnonymous, limit).Count)
}

func TestWindowStore_BoundaryBurstIsAllowed(t *testing.T) {
	defer clock.Freeze(windowStart.Add(59 * time.Second)).Unfreeze()

	s := NewWindowStore()
	limit := domain.TierLimit{Quota: 3, Period: time.Minute}

	for i := 0; i < 3; i++ {
		require.LessOrEqual(t, s.Take("k", domain.TierAnonymous, limit).Count, 3)
	}
	clock.Advance(time.Second)
	for i := 0; i < 3; i++ {
		require.LessOrEqual(t, s.Take("k", domain.TierAnonymous, limit).Count, 3)
	}
}

func TestWindowStore_CollectsStaleWindowsOnTraffic(t *testing.T) {
	defer clock.Freeze(windowStart).Unfreeze()

	s := NewWindowStore()
	limit := domain.TierLimit{Quota: 10, Period: time.Minute}

	s.Take("old", domain.TierAnonymous, limit)
	clock.Advance(time.Minute)
	s.Take("previous", domain.TierAnonymous, limit)
	assert.Equal(t, 2, s.Len(), "previous window is kept")

	clock.Advance(time.Minute)
	s.Take("current", domain.TierAnonymous, limit)
	assert.Equal(t, 2, s.Len(), "window two periods behind must be dropped")
}

func TestWindowStore_ConcurrentTakesNeverOverAdmit(t *testing.T) {
	defer clock.Freeze(windowStart).Unfreeze()

	const quota = 50
	s := NewWindowStore()
	limit := domain.TierLimit{Quota: quota, Period: time.Minute}

	var admitted atomic.Int64
	var launch, done sync.WaitGroup
	launch.Add(1)
	for i := 0; i < 2*quota; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			launch.Wait()
			if s.Take("burst", domain.TierAnonymous, limit).Count <= quota {
				admitted.Add(1)
			}
		}()
	}
	launch.Done()
	done.Wait()

	assert.Equal(t, int64(quota), admitted.Load())
}
