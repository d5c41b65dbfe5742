package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "AUTHKEEPER_"

// parseEnv loads the .env file (or the one named by -env-file) into the
// process environment, then overlays every AUTHKEEPER_* variable that is set.
// Variables already present in the environment win over the file. A missing
// default .env is not an error; a missing explicit -env-file is.
func parseEnv(config *Config, args []string) error {
	if file := flagx.EnvFile(args); file != "" {
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("error loading env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	lookupString("HTTP_ADDR", &config.HTTPAddr)
	lookupString("GRPC_ADDR", &config.GRPCAddr)
	lookupString("DATABASE_DSN", &config.DatabaseDSN)
	lookupString("STORE_BACKEND", &config.StoreBackend)
	lookupString("REDIS_ADDR", &config.RedisAddr)
	lookupString("REDIS_PASSWORD", &config.RedisPassword)
	lookupString("SECRET_KEY", &config.SecretKey)
	lookupString("ISSUER", &config.Issuer)
	lookupString("ROOT_USER", &config.RootUser)
	lookupString("ROOT_PASSWORD", &config.RootPassword)
	lookupString("LOG_LEVEL", &config.LogLevel)

	if err := lookupInt("REDIS_DB", &config.RedisDB); err != nil {
		return err
	}
	if err := lookupMillis("ACCESS_TOKEN_TTL_MS", &config.AccessTokenTTL); err != nil {
		return err
	}
	if err := lookupMillis("REFRESH_TOKEN_TTL_MS", &config.RefreshTokenTTL); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvPrefix + "COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCOOKIE_SECURE: %w", EnvPrefix, err)
		}
		config.CookieSecure = b
	}
	return nil
}

func lookupString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func lookupInt(name string, dst *int) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func lookupMillis(name string, dst *time.Duration) error {
	ms := int(dst.Milliseconds())
	if err := lookupInt(name, &ms); err != nil {
		return err
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
