package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-d", "-b", "-r", "-s", "-i", "-t", "-f", "-secure-cookie", "-l"}

// parseFlags overrides config from command-line flags.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address
//	-d string   PostgreSQL DSN
//	-b string   refresh token store backend (postgres|redis)
//	-r string   Redis address
//	-s string   access token signing key
//	-i string   access token issuer
//	-t int      access token ttl, milliseconds
//	-f int      refresh token ttl, milliseconds
//	-secure-cookie   mark the refresh cookie Secure
//	-l string   log level
//
// os.Args is shared with the JSON and env loaders, so only the flags above
// are passed through flagx.FilterArgs. Parse errors panic.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "refresh token store (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "access token issuer")
	fs.BoolVar(&config.CookieSecure, "secure-cookie", config.CookieSecure, "send the refresh cookie only over HTTPS")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTTL := fs.Int64("t", config.AccessTokenTTL.Milliseconds(), "access token ttl (ms)")
	refreshTTL := fs.Int64("f", config.RefreshTokenTTL.Milliseconds(), "refresh token ttl (ms)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenTTL = time.Duration(*accessTTL) * time.Millisecond
	config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Millisecond
}
