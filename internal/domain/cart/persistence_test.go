package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/cache"
)

const testKey = "cart:session:s1:bellaNotteCart"

func setupPersistence(t *testing.T) (*Persistence, *miniredis.Miniredis, *test.Hook) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger, hook := test.NewNullLogger()
	return NewPersistence(cache.NewRedisStore(client), testKey, 24*time.Hour, logger), mr, hook
}

func sampleLines() []Line {
	c := menu.Customization{Size: menu.SizeLarge}
	return []Line{
		{
			Key:       CompositeKey("1", menu.Customization{}),
			ItemID:    "1",
			Name:      "Margherita Pizza",
			BasePrice: decimal.NewFromInt(720),
			Quantity:  2,
			UnitPrice: decimal.NewFromInt(720),
			AddedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			Key:           CompositeKey("6", c),
			ItemID:        "6",
			Name:          "Quattro Stagioni",
			BasePrice:     decimal.NewFromInt(920),
			Customization: c,
			Quantity:      1,
			UnitPrice:     decimal.NewFromInt(1020),
			AddedAt:       time.Date(2026, 1, 2, 3, 5, 5, 0, time.UTC),
		},
	}
}

func assertLinesEqual(t *testing.T, want, got []Line) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key, got[i].Key)
		assert.Equal(t, want[i].ItemID, got[i].ItemID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].Customization, got[i].Customization)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice))
		assert.True(t, want[i].AddedAt.Equal(got[i].AddedAt))
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	p, _, _ := setupPersistence(t)
	ctx := context.Background()

	p.Save(ctx, sampleLines())

	assertLinesEqual(t, sampleLines(), p.Restore(ctx))
}

func TestRestoreMissing(t *testing.T) {
	p, _, _ := setupPersistence(t)

	lines := p.Restore(context.Background())
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestRestoreStale(t *testing.T) {
	p, mr, _ := setupPersistence(t)
	ctx := context.Background()
	now := time.Now()
	p.now = func() time.Time { return now }

	p.Save(ctx, sampleLines())
	now = now.Add(24*time.Hour + time.Second)

	assert.Empty(t, p.Restore(ctx))
	assert.False(t, mr.Exists(testKey), "stale entry removed")
}

func TestRestoreJustInsideMaxAge(t *testing.T) {
	p, _, _ := setupPersistence(t)
	ctx := context.Background()
	now := time.Now()
	p.now = func() time.Time { return now }

	p.Save(ctx, sampleLines())
	now = now.Add(23 * time.Hour)

	assert.Len(t, p.Restore(ctx), 2)
}

func TestRestoreCorrupt(t *testing.T) {
	p, mr, hook := setupPersistence(t)
	require.NoError(t, mr.Set(testKey, "{not json"))

	assert.Empty(t, p.Restore(context.Background()))
	assert.False(t, mr.Exists(testKey), "corrupt entry removed")
	assert.NotEmpty(t, hook.AllEntries())
}

func TestRestoreWithoutTimestampIsDiscarded(t *testing.T) {
	p, mr, _ := setupPersistence(t)
	require.NoError(t, mr.Set(testKey, `{"items":[]}`))

	assert.Empty(t, p.Restore(context.Background()))
	assert.False(t, mr.Exists(testKey))
}

func TestRestoreLegacyArray(t *testing.T) {
	p, mr, _ := setupPersistence(t)
	legacy := `[{"cartKey":"3_{}","id":"3","name":"Bruschetta Classica","price":380,"quantity":2,"finalPrice":380,"customization":{}}]`
	require.NoError(t, mr.Set(testKey, legacy))

	lines := p.Restore(context.Background())

	require.Len(t, lines, 1)
	assert.Equal(t, "3_{}", lines[0].Key)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(380)))
}

func TestRestoreTimestampAlias(t *testing.T) {
	p, mr, _ := setupPersistence(t)
	saved := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	require.NoError(t, mr.Set(testKey, `{"items":[{"cartKey":"7_{}","id":"7","quantity":1,"finalPrice":180}],"timestamp":"`+saved+`"}`))

	lines := p.Restore(context.Background())
	require.Len(t, lines, 1)
	assert.Equal(t, "7", lines[0].ItemID)
}

func TestSaveEmitsWrappedShape(t *testing.T) {
	p, mr, _ := setupPersistence(t)
	p.Save(context.Background(), nil)

	raw, err := mr.Get(testKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"items":[]`)
	assert.Contains(t, raw, `"savedAt":`)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("quota exceeded")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("quota exceeded")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("quota exceeded")
}

func TestSaveFailureIsLoggedNotReturned(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewPersistence(failingStore{}, testKey, time.Hour, logger)

	assert.NotPanics(t, func() { p.Save(context.Background(), sampleLines()) })
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to save cart", hook.LastEntry().Message)
	assert.Empty(t, p.Restore(context.Background()))
}
