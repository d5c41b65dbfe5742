package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Durations
// go through timex.Duration, so "15m" and 900000 (milliseconds) both work.
// Pointer fields distinguish "absent" from a zero value; only keys present in
// the file override the current Config.
type JsonConfig struct {
	HTTPAddr        *string         `json:"http_addr"`
	GRPCAddr        *string         `json:"grpc_addr"`
	DatabaseDSN     *string         `json:"database_dsn"`
	StoreBackend    *string         `json:"store_backend"`
	RedisAddr       *string         `json:"redis_addr"`
	RedisPassword   *string         `json:"redis_password"`
	RedisDB         *int            `json:"redis_db"`
	SecretKey       *string         `json:"secret_key"`
	Issuer          *string         `json:"issuer"`
	AccessTokenTTL  *timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL *timex.Duration `json:"refresh_token_ttl"`
	CookieSecure    *bool           `json:"cookie_secure"`
	RootUser        *string         `json:"root_user"`
	RootPassword    *string         `json:"root_password"`
	LogLevel        *string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing happens. An unreadable file or invalid JSON panics, as the
// server cannot start with a configuration it was told to use.
func parseJson(config *Config, args []string) {

	jsonConfigFile := flagx.JSONConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.GRPCAddr, c.GRPCAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.StoreBackend, c.StoreBackend)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.RedisPassword, c.RedisPassword)
	setIf(&config.RedisDB, c.RedisDB)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.Issuer, c.Issuer)
	setIf(&config.CookieSecure, c.CookieSecure)
	setIf(&config.RootUser, c.RootUser)
	setIf(&config.RootPassword, c.RootPassword)
	setIf(&config.LogLevel, c.LogLevel)
	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
