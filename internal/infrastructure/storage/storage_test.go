package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type note struct {
	ID    string     `gorm:"primaryKey;size:64" json:"id"`
	Body  string     `json:"body"`
	Lines []noteLine `gorm:"foreignKey:NoteID" json:"lines"`
}

type noteLine struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	NoteID string `gorm:"size:64;index" json:"-"`
	Text   string `gorm:"not null" json:"text"`
}

func (n *note) SetID(id string) { n.ID = id }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}, &noteLine{}))
	return db
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestGormSinkInsertsWithAssociations(t *testing.T) {
	db := setupDB(t)
	sink := NewGormSink[*note](db)

	rec := &note{Body: "hello", Lines: []noteLine{{Text: "a"}, {Text: "b"}}}
	receipt, err := sink.Append(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, receipt.Backend)
	assert.False(t, receipt.Local())
	assert.Equal(t, receipt.ID, rec.ID)

	var stored note
	require.NoError(t, db.Preload("Lines").First(&stored, "id = ?", receipt.ID).Error)
	assert.Len(t, stored.Lines, 2)
}

func TestGormSinkFailureLeavesNothing(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Migrator().DropTable(&noteLine{}))
	sink := NewGormSink[*note](db)

	_, err := sink.Append(context.Background(), &note{Body: "x", Lines: []noteLine{{Text: "a"}}})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&note{}).Count(&count).Error)
	assert.Zero(t, count, "parent row rolled back with the failing child insert")
}

func TestQueueSinkAppendsWithPrefixedIDs(t *testing.T) {
	client, _ := setupRedis(t)
	sink := NewQueueSink[*note](client, "localOrders", "local")
	fixed := time.UnixMilli(1700000000000)
	sink.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := sink.Append(ctx, &note{Body: "one"})
	require.NoError(t, err)
	second, err := sink.Append(ctx, &note{Body: "two"})
	require.NoError(t, err)

	assert.Equal(t, "local_1700000000000", first.ID)
	assert.Equal(t, "local_1700000000001", second.ID)
	assert.True(t, first.Local())

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var decoded note
	require.NoError(t, json.Unmarshal(entries[0], &decoded))
	assert.Equal(t, "local_1700000000000", decoded.ID)
	assert.Equal(t, "one", decoded.Body)
}

func TestQueueSinkReplace(t *testing.T) {
	client, _ := setupRedis(t)
	sink := NewQueueSink[*note](client, "reservations", "res")
	ctx := context.Background()

	rec := &note{Body: "pending"}
	_, err := sink.Append(ctx, rec)
	require.NoError(t, err)

	rec.Body = "cancelled"
	require.NoError(t, sink.Replace(ctx, 0, rec))

	entries, err := sink.Entries(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(entries[0]), "cancelled")
}

func TestQueueSinkRedisDown(t *testing.T) {
	client, mr := setupRedis(t)
	sink := NewQueueSink[*note](client, "contactMessages", "msg")
	mr.Close()

	_, err := sink.Append(context.Background(), &note{Body: "x"})
	assert.Error(t, err)
}

type stubSink struct {
	mu      sync.Mutex
	err     error
	backend string
	calls   int
}

func (s *stubSink) Append(_ context.Context, rec *note) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return Receipt{}, s.err
	}
	rec.SetID(s.backend + "-id")
	return Receipt{ID: rec.ID, Backend: s.backend}, nil
}

func newFallback(remote, local *stubSink) *FallbackSink[*note] {
	logger, _ := test.NewNullLogger()
	return NewFallbackSink[*note]("notes", remote, local, BreakerSettings{
		MaxFailures:      2,
		OpenTimeout:      time.Minute,
		HalfOpenRequests: 1,
	}, logger, nil)
}

func TestFallbackPrefersRemote(t *testing.T) {
	remote := &stubSink{backend: BackendRemote}
	local := &stubSink{backend: BackendLocal}
	sink := newFallback(remote, local)

	receipt, err := sink.Append(context.Background(), &note{})
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, receipt.Backend)
	assert.Zero(t, local.calls)
}

func TestFallbackDivertsOnRemoteFailure(t *testing.T) {
	remote := &stubSink{err: errors.New("connection reset")}
	local := &stubSink{backend: BackendLocal}
	sink := newFallback(remote, local)

	receipt, err := sink.Append(context.Background(), &note{})
	require.NoError(t, err)
	assert.True(t, receipt.Local())
	assert.Equal(t, 1, local.calls)
}

func TestFallbackBreakerSkipsRemoteWhenOpen(t *testing.T) {
	remote := &stubSink{err: errors.New("timeout")}
	local := &stubSink{backend: BackendLocal}
	sink := newFallback(remote, local)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := sink.Append(ctx, &note{})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, remote.calls, "breaker opens after two consecutive failures")
	assert.Equal(t, 5, local.calls)
	assert.Equal(t, "open", sink.State())
}

func TestFallbackBothFail(t *testing.T) {
	remote := &stubSink{err: errors.New("remote down")}
	local := &stubSink{err: errors.New("redis down")}
	sink := newFallback(remote, local)

	_, err := sink.Append(context.Background(), &note{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote down")
	assert.Contains(t, err.Error(), "redis down")
}
