package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAPIKeys(t *testing.T) {
	keys := parseAPIKeys("k1:alice, k2:bob ,broken,k3:team:ops")

	assert.Equal(t, map[string]string{
		"k1": "alice",
		"k2": "bob",
		"k3": "team:ops",
	}, keys)
	assert.Empty(t, parseAPIKeys(""))
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, parseList(" 10.0.0.0/8, ,127.0.0.1"))
	assert.Nil(t, parseList(""))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("API_KEYS", "secret:alice")

	cfg, err := Load()
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "alice", cfg.Auth.APIKeys["secret"])
	assert.Equal(t, []string{"admin"}, cfg.Auth.Admins)
	assert.Equal(t, 6, cfg.Links.CodeLength)
	assert.Equal(t, 3, cfg.Recorder.Workers)
	assert.Equal(t, "CF-IPCountry", cfg.Geo.CountryHeader)
	assert.False(t, cfg.IsProduction())
}
