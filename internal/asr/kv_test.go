package asr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKVCacheShapeAndNaming(t *testing.T) {
	entries := NewKVCache(2, 4, 8)
	require.Len(t, entries, 2*2*2)

	seen := make(map[string]bool)
	for _, e := range entries {
		require.False(t, seen[e.Name], "duplicate entry name %q", e.Name)
		seen[e.Name] = true
		require.Equal(t, []int64{1, 4, 1, 8}, e.Shape)
		require.Len(t, e.Data, 4*8)
	}

	require.True(t, seen["past_key_values.0.decoder.key"])
	require.True(t, seen["past_key_values.1.encoder.value"])
}

func TestShouldUpdateAtStepZeroAppliesToAll(t *testing.T) {
	for _, e := range NewKVCache(1, 2, 4) {
		require.True(t, e.ShouldUpdate(0))
	}
}

func TestShouldUpdateAfterStepZeroOnlyDecoder(t *testing.T) {
	decoder := KvEntry{Module: ModuleDecoder}
	encoder := KvEntry{Module: ModuleEncoder}
	require.True(t, decoder.ShouldUpdate(1))
	require.False(t, encoder.ShouldUpdate(1))
}
