package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:8081", "-g", "127.0.0.1:9090", "-d", "db", "-b", "redis", "-r", "redis:6379",
			"-s", "secret", "-i", "issuer", "-t", "60000", "-f", "9000000", "-secure-cookie", "-l", "debug",
		}, expected: &Config{
			HTTPAddr:        "127.0.0.1:8081",
			GRPCAddr:        "127.0.0.1:9090",
			DatabaseDSN:     "db",
			StoreBackend:    "redis",
			RedisAddr:       "redis:6379",
			SecretKey:       "secret",
			Issuer:          "issuer",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: 9000000 * time.Millisecond,
			CookieSecure:    true,
			LogLevel:        "debug",
		}},
		{name: "unknown flags are ignored", args: []string{"-config", "x.json", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "bad ttl panics", args: []string{"-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config, tt.args) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config, tt.args) })
			}
		})
	}
}
