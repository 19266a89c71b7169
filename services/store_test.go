package services

import (
	"context"
	"os"
	"testing"
	"time"

	"blockademia-progress/models"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func sampleRecord() *models.ProgressRecord {
	created := time.Date(2025, 1, 2, 3, 4, 5, 123456789, time.UTC)
	completed := created.Add(90 * time.Minute)
	rec := models.NewProgressRecord("u1", 100, created)
	rec.TotalXP = 1234
	rec.RecomputeLevel(1000)
	rec.CourseProgress["c1"] = &models.CourseProgressEntry{
		Progress:         100,
		LessonsCompleted: 10,
		TotalLessons:     10,
		LastAccessed:     completed,
		XPEarned:         500,
		Completed:        true,
		CompletedAt:      &completed,
	}
	rec.CoursesCompleted = []string{"c1"}
	rec.Achievements = append(rec.Achievements, models.UnlockedAchievement{ID: "first_steps", UnlockedAt: created, XPReward: 50, TokenReward: 10})
	rec.Version = 1
	return rec
}

// testStoreContract exercises the version semantics every ProgressStore must honor.
func testStoreContract(t *testing.T, store ProgressStore, key string) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, key)
	require.ErrorIs(t, err, ErrProgressNotFound)

	rec := sampleRecord()
	doc, err := encodeProgress(rec)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, key, 1, doc))
	assert.ErrorIs(t, store.Save(ctx, key, 1, doc), ErrVersionConflict, "second create")
	assert.ErrorIs(t, store.Save(ctx, key, 3, doc), ErrVersionConflict, "skipped version")
	require.NoError(t, store.Save(ctx, key, 2, doc))

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	got, err := decodeProgress(loaded)
	require.NoError(t, err)

	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.CreatedAt.Nanosecond(), got.CreatedAt.Nanosecond())
	require.NotNil(t, got.CourseProgress["c1"].CompletedAt)
	assert.True(t, rec.CourseProgress["c1"].CompletedAt.Equal(*got.CourseProgress["c1"].CompletedAt))
	assert.Equal(t, rec.TotalXP, got.TotalXP)
	assert.Equal(t, rec.Level, got.Level)
	assert.Equal(t, rec.CoursesCompleted, got.CoursesCompleted)
}

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemoryStore()
	testStoreContract(t, store, models.ProgressKey("u1"))
	assert.Equal(t, int64(2), store.Version(models.ProgressKey("u1")))
}

func TestDecodeProgressNormalizesNilCollections(t *testing.T) {
	rec, err := decodeProgress([]byte(`{"userId":"u1","level":1,"tokenBalance":100}`))
	require.NoError(t, err)
	assert.NotNil(t, rec.CourseProgress)
	assert.NotNil(t, rec.Inventory)
	assert.NotNil(t, rec.Achievements)
	assert.NotNil(t, rec.Transactions)
	assert.NotNil(t, rec.CoursesCompleted)
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisStoreContract(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	prefix := "test:" + uuid.NewString() + ":"
	key := models.ProgressKey("u1")
	t.Cleanup(func() { client.Del(context.Background(), prefix+key) })

	testStoreContract(t, NewRedisStore(client, prefix), key)
}

// Integration-style test: runs only if DATABASE_URL env is set.
func TestGormStoreContract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProgressDocument{}))

	key := models.ProgressKey("test-" + uuid.NewString())
	t.Cleanup(func() { db.Where("doc_key = ?", key).Delete(&models.ProgressDocument{}) })

	testStoreContract(t, NewGormStore(db), key)
}
