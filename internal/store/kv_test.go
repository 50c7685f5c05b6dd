package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	_, err := kv.Get(ctx, "prefs")
	require.ErrorIs(t, err, store.ErrMiss)

	require.NoError(t, kv.Set(ctx, "prefs", `{"volume":70}`, 0))
	v, err := kv.Get(ctx, "prefs")
	require.NoError(t, err)
	require.Equal(t, `{"volume":70}`, v)
}

func TestFileKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "mealboard.json")
	ctx := context.Background()

	kv, err := store.NewFileKV(path)
	require.NoError(t, err)
	_, err = kv.Get(ctx, "prefs")
	require.ErrorIs(t, err, store.ErrMiss)

	require.NoError(t, kv.Set(ctx, "prefs", "v1", time.Minute))

	reopened, err := store.NewFileKV(path)
	require.NoError(t, err)
	v, err := reopened.Get(ctx, "prefs")
	require.NoError(t, err)
	require.Equal(t, "v1", v)
}

func TestFileKV_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := store.NewFileKV(path)
	require.Error(t, err)
}
