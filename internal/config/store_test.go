package config

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memSettings struct {
	mu   sync.Mutex
	rows map[string]string
	fail bool
}

func (m *memSettings) GetAll(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("storage down")
	}
	out := make(map[string]string, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out, nil
}

func (m *memSettings) EnsureDefault(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[string]string{}
	}
	if _, ok := m.rows[key]; !ok {
		m.rows[key] = value
	}
	return nil
}

func (m *memSettings) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[string]string{}
	}
	m.rows[key] = value
}

func (m *memSettings) setFail(v bool) {
	m.mu.Lock()
	m.fail = v
	m.mu.Unlock()
}

func TestStoreOverlayWinsOverDefaults(t *testing.T) {
	settings := &memSettings{}
	store, err := NewStore(testDefaults(), settings, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	m := store.Current(ctx)
	assert.Equal(t, "google.com", m.ConnectTarget)

	settings.set("connect_target", "example.net")
	settings.set("connect_interval_seconds", "5")
	m = store.Current(ctx)
	assert.Equal(t, "example.net", m.ConnectTarget)
	assert.Equal(t, 5*time.Second, m.ConnectInterval)
}

func TestStoreMalformedSettingKeepsDefault(t *testing.T) {
	settings := &memSettings{}
	settings.set("connect_interval_seconds", "warp speed")
	settings.set("connect_target", "example.net")
	store, err := NewStore(testDefaults(), settings, zap.NewNop())
	require.NoError(t, err)

	m := store.Current(context.Background())
	assert.Equal(t, time.Second, m.ConnectInterval, "bad value falls back to the default")
	assert.Equal(t, "example.net", m.ConnectTarget, "good values still apply")
}

func TestStoreClampsOverlay(t *testing.T) {
	settings := &memSettings{}
	settings.set("connect_interval_seconds", "0.001")
	settings.set("speedtest_interval_seconds", "0")
	store, err := NewStore(testDefaults(), settings, zap.NewNop())
	require.NoError(t, err)

	m := store.Current(context.Background())
	assert.Equal(t, 100*time.Millisecond, m.ConnectInterval)
	assert.Equal(t, time.Second, m.SpeedInterval)
}

func TestStoreKeepsPreviousSnapshotOnReadFailure(t *testing.T) {
	settings := &memSettings{}
	settings.set("connect_target", "example.net")
	store, err := NewStore(testDefaults(), settings, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	m := store.Current(ctx)
	require.Equal(t, "example.net", m.ConnectTarget)

	settings.setFail(true)
	m = store.Current(ctx)
	assert.Equal(t, "example.net", m.ConnectTarget, "last good snapshot survives the outage")

	settings.setFail(false)
	settings.set("connect_target", "example.org")
	m = store.Current(ctx)
	assert.Equal(t, "example.org", m.ConnectTarget)
}

func TestStoreSeedDoesNotOverwrite(t *testing.T) {
	settings := &memSettings{}
	settings.set("connect_target", "user-edited.example")
	store, err := NewStore(testDefaults(), settings, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx))

	rows, err := settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-edited.example", rows["connect_target"], "seed never clobbers an edited row")
	assert.Equal(t, "url", rows["speedtest_mode"], "missing keys get their defaults")
	assert.Len(t, rows, 17)
}
