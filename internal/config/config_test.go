package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanlun-quant-go/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"equity": {"initial_cash": 50000}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// 显式给出的值覆盖默认值
	assert.InDelta(t, 50000.0, cfg.Equity.InitialCash, 1e-9)
	// 未给出的小节保持默认
	assert.Equal(t, 365, cfg.Store.CacheTTLDays)
	assert.Equal(t, 4, cfg.Chan.MinBarsBetweenFractals)
	assert.Equal(t, "chan", cfg.Strategy.Name)
}

func TestLoadConfigRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `{"stor": {"cache_dir": "x"}}`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `{"futures": {"leverage_fraction": 2.0}}`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
