package log

import (
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedAdapter(t *testing.T) (log.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return NewKratosAdapter(zap.New(core)), logs
}

func TestAdapterSanitizesStringValues(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	err := adapter.Log(log.LevelInfo,
		"provider", "openai",
		"api_key", "sk-abcdef1234567890")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "openai", fields["provider"])
	assert.Equal(t, "sk-a**********7890", fields["api_key"])
}

func TestAdapterMapsLevels(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	require.NoError(t, adapter.Log(log.LevelDebug, "msg", "d"))
	require.NoError(t, adapter.Log(log.LevelInfo, "msg", "i"))
	require.NoError(t, adapter.Log(log.LevelWarn, "msg", "w"))
	require.NoError(t, adapter.Log(log.LevelError, "msg", "e"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.InfoLevel, entries[1].Level)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
}

func TestAdapterIgnoresEmptyAndOddKeyvals(t *testing.T) {
	adapter, logs := newObservedAdapter(t)

	require.NoError(t, adapter.Log(log.LevelInfo))
	assert.Empty(t, logs.All())

	// dangling key without a value is dropped, not logged half-formed
	require.NoError(t, adapter.Log(log.LevelInfo, "provider", "openai", "dangling"))
	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "openai", fields["provider"])
	assert.NotContains(t, fields, "dangling")
}
