package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://sportvsegda.ru", cfg.BaseURL)
	assert.Equal(t, 2, cfg.StadiumID)
	assert.Equal(t, 1, cfg.SessionType)
	assert.Equal(t, 5, cfg.SessionTTLMinutes)
	assert.True(t, cfg.Headless)
	assert.Empty(t, cfg.BotToken)
	assert.Empty(t, cfg.CardNumber)
}

func TestLoadConfigCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.StadiumID)

	_, err = os.Stat(path)
	assert.NoError(t, err, "a default config file should have been written")
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	orig := DefaultConfig()
	orig.CustomerName = "Иван Иванов"
	orig.CustomerPhone = "+79990001122"
	orig.Persons = []Person{
		{Name: "Иван", Promo: "SKATE10"},
		{Name: "Мария"},
	}
	orig.SessionTTLMinutes = 7
	require.NoError(t, orig.Save(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, orig.CustomerName, cfg.CustomerName)
	assert.Equal(t, orig.Persons, cfg.Persons)
	assert.Equal(t, 7, cfg.SessionTTLMinutes)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("CARD_NUMBER", "4111111111111111")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.EqualValues(t, 42, cfg.AdminID)
	assert.Equal(t, "4111111111111111", cfg.CardNumber)
}

func TestLoadConfigClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	bad := DefaultConfig()
	bad.PageLoadTimeout = -1
	bad.SessionTTLMinutes = 0
	require.NoError(t, bad.Save(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.PageLoadTimeout)
	assert.Equal(t, 5, cfg.SessionTTLMinutes)
}

func TestLoadConfigRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("persons: [broken"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
