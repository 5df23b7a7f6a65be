package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{"input_dir": "/records"}, map[string]any{"concurrency": 2})

	assert.Equal(t, "/records", store.GetString("input_dir"))
	assert.Equal(t, 2, store.GetInt("concurrency"))
	assert.Equal(t, []string{"concurrency", "input_dir"}, store.Keys())
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("key1", "original"))
	require.NoError(t, store.Set("key1", "updated"))

	val, ok := store.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	tests := []struct {
		name  string
		value any
		check func(t *testing.T, s *ConfigStore)
	}{
		{"string", "v", func(t *testing.T, s *ConfigStore) { assert.Equal(t, "v", s.GetString("k")) }},
		{"string wrong type", 1, func(t *testing.T, s *ConfigStore) { assert.Equal(t, "", s.GetString("k")) }},
		{"int", 42, func(t *testing.T, s *ConfigStore) { assert.Equal(t, 42, s.GetInt("k")) }},
		{"int from int64", int64(7), func(t *testing.T, s *ConfigStore) { assert.Equal(t, 7, s.GetInt("k")) }},
		{"int from float", 3.9, func(t *testing.T, s *ConfigStore) { assert.Equal(t, 3, s.GetInt("k")) }},
		{"int wrong type", "x", func(t *testing.T, s *ConfigStore) { assert.Equal(t, 0, s.GetInt("k")) }},
		{"float", 0.7, func(t *testing.T, s *ConfigStore) { assert.InDelta(t, 0.7, s.GetFloat("k"), 1e-9) }},
		{"float from int", 2, func(t *testing.T, s *ConfigStore) { assert.InDelta(t, 2.0, s.GetFloat("k"), 1e-9) }},
		{"bool", true, func(t *testing.T, s *ConfigStore) { assert.True(t, s.GetBool("k")) }},
		{"bool wrong type", "true", func(t *testing.T, s *ConfigStore) { assert.False(t, s.GetBool("k")) }},
		{"duration", 3 * time.Second, func(t *testing.T, s *ConfigStore) { assert.Equal(t, 3*time.Second, s.GetDuration("k")) }},
		{"duration string", "2m", func(t *testing.T, s *ConfigStore) { assert.Equal(t, 2*time.Minute, s.GetDuration("k")) }},
		{"duration bad string", "soon", func(t *testing.T, s *ConfigStore) { assert.Zero(t, s.GetDuration("k")) }},
		{"slice", []string{"a"}, func(t *testing.T, s *ConfigStore) { assert.Equal(t, []string{"a"}, s.GetStringSlice("k")) }},
		{"slice of any", []any{"a", 1, "b"}, func(t *testing.T, s *ConfigStore) { assert.Equal(t, []string{"a", "b"}, s.GetStringSlice("k")) }},
		{"slice wrong type", "a", func(t *testing.T, s *ConfigStore) { assert.Nil(t, s.GetStringSlice("k")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			require.NoError(t, store.Set("k", tt.value))
			tt.check(t, store)
		})
	}
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("key1", "value1")

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "value1", store.GetString("key1"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	const n = 50
	wg.Add(n * 2)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key-%d", id), id)
		}(i)
		go func(id int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key-%d", id))
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), n)
}
