package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	"pgregory.net/rapid"
)

const testUser = "550e8400-e29b-41d4-a716-446655440000"

func tierSet(t require.TestingT, tier entity.Tier) entitlement.Set {
	tables, err := entitlement.DefaultTables()
	require.NoError(t, err)
	return entitlement.NewResolver(tables).Resolve(tier)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestWindowKey(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)

	// 01:30 UTC on Jan 1 is still Dec 31 in São Paulo
	ts := time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, "2023-12-31", WindowKey(entitlement.WindowDaily, ts, loc))
	assert.Equal(t, "12-2023", WindowKey(entitlement.WindowMonthly, ts, loc))
	assert.Equal(t, "2024-01-01", WindowKey(entitlement.WindowDaily, ts, time.UTC))
	assert.Equal(t, "01-2024", WindowKey(entitlement.WindowMonthly, ts, time.UTC))
	assert.Equal(t, "lifetime", WindowKey(entitlement.WindowNone, ts, loc))

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestLedger_FreeGate(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	l := NewLedger(testUser, entity.TierFree, tierSet(t, entity.TierFree), NewMemoryStore(), WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		ok, err := l.CanUse(ctx, "doutor_ia", entitlement.WindowDaily)
		require.NoError(t, err)
		assert.True(t, ok, "use %d", i+1)
		_, err = l.Increment(ctx, "doutor_ia", entitlement.WindowDaily)
		require.NoError(t, err)
	}

	ok, err := l.CanUse(ctx, "doutor_ia", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.False(t, ok)

	rem, err := l.Remaining(ctx, "doutor_ia", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, entitlement.Bounded(0), rem)

	// monthly window of the same feature is independent
	rem, err = l.Remaining(ctx, "doutor_ia", entitlement.WindowMonthly)
	require.NoError(t, err)
	assert.Equal(t, entitlement.Bounded(60), rem)
}

func TestLedger_PremiumAlwaysAllowed(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(testUser, entity.TierPremium, tierSet(t, entity.TierPremium), NewMemoryStore())

	for i := 0; i < 50; i++ {
		_, err := l.Increment(ctx, "games", entitlement.WindowDaily)
		require.NoError(t, err)
	}
	st, err := l.Status(ctx, "games", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.True(t, st.CanUse)
	assert.True(t, st.Remaining.IsUnbounded())
	assert.Equal(t, 50, st.Count)
}

func TestLedger_PremiumTierWithFreeTableIsUnbounded(t *testing.T) {
	l := NewLedger(testUser, entity.TierPremium, tierSet(t, entity.TierFree), NewMemoryStore())

	rem, err := l.Remaining(context.Background(), "games", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.True(t, rem.IsUnbounded())
}

func TestLedger_UndeclaredFeatureIsUnbounded(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(testUser, entity.TierFree, tierSet(t, entity.TierFree), NewMemoryStore())

	ok, err := l.CanUse(ctx, "flashcards", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.True(t, ok)

	// games has no monthly limit
	rem, err := l.Remaining(ctx, "games", entitlement.WindowMonthly)
	require.NoError(t, err)
	assert.True(t, rem.IsUnbounded())
}

func TestLedger_DailyRollover(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)}
	l := NewLedger(testUser, entity.TierFree, tierSet(t, entity.TierFree), NewMemoryStore(),
		WithClock(clock.Now), WithLocation(time.UTC))

	for i := 0; i < 5; i++ {
		_, err := l.Increment(ctx, "quiz", entitlement.WindowDaily)
		require.NoError(t, err)
	}
	st, err := l.Status(ctx, "quiz", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", st.WindowKey)
	assert.Equal(t, 5, st.Count)
	assert.False(t, st.CanUse)

	clock.t = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	st, err = l.Increment(ctx, "quiz", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", st.WindowKey)
	assert.Equal(t, 1, st.Count, "reset to 0 before the increment applies")
	assert.Equal(t, entitlement.Bounded(4), st.Remaining)
}

func TestLedger_RolloverOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)}
	l := NewLedger(testUser, entity.TierFree, tierSet(t, entity.TierFree), store,
		WithClock(clock.Now), WithLocation(time.UTC))

	for i := 0; i < 5; i++ {
		_, err := l.Increment(ctx, "quiz", entitlement.WindowDaily)
		require.NoError(t, err)
		_, err = l.Increment(ctx, "quiz", entitlement.WindowMonthly)
		require.NoError(t, err)
	}

	clock.t = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	ok, err := l.CanUse(ctx, "quiz", entitlement.WindowDaily)
	require.NoError(t, err)
	assert.True(t, ok)

	counters, err := store.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, counters, 2)
	// only the window that was read has been rolled over
	assert.Equal(t, Counter{Feature: "quiz", Window: entitlement.WindowDaily, Count: 0, WindowKey: "2024-02-01"}, counters[0])
	assert.Equal(t, Counter{Feature: "quiz", Window: entitlement.WindowMonthly, Count: 5, WindowKey: "01-2024"}, counters[1])
}

func TestLedger_Snapshot(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(testUser, entity.TierFree, tierSet(t, entity.TierFree), NewMemoryStore())

	_, err := l.Increment(ctx, "clinical_cases", entitlement.WindowMonthly)
	require.NoError(t, err)

	snap, err := l.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 6)
	assert.Equal(t, "clinical_cases", snap[0].Feature)
	assert.Equal(t, 1, snap[0].Count)
	assert.Equal(t, entitlement.Bounded(9), snap[0].Remaining)
}

func TestLedger_RemainingPlusCountIsLimit(t *testing.T) {
	free := tierSet(t, entity.TierFree)
	premium := tierSet(t, entity.TierPremium)
	entries := free.Entries()

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		e := rapid.SampledFrom(entries).Draw(t, "entry")
		n := rapid.IntRange(0, e.Limit.Value()).Draw(t, "uses")

		store := NewMemoryStore()
		l := NewLedger(testUser, entity.TierFree, free, store)
		for i := 0; i < n; i++ {
			_, err := l.Increment(ctx, e.Feature, e.Window)
			require.NoError(t, err)
		}

		st, err := l.Status(ctx, e.Feature, e.Window)
		require.NoError(t, err)
		require.Equal(t, n, st.Count)
		require.Equal(t, e.Limit.Value(), st.Remaining.Value()+st.Count)
		require.Equal(t, n < e.Limit.Value(), st.CanUse)

		p := NewLedger(testUser, entity.TierPremium, premium, store)
		rem, err := p.Remaining(ctx, e.Feature, e.Window)
		require.NoError(t, err)
		require.True(t, rem.IsUnbounded())
	})
}
