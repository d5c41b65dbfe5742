package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/authctl"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// authctl reads the same configuration as the server (environment, -c file,
// -d DSN) and talks to the database directly.
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		log.Fatal(authctl.ErrUsage)
	}

	ctx := context.Background()
	cfg, err := config.LoadConfig(args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("%v", err)
	}

	// Only CreateUser is used, so no token pair machinery is wired.
	svc, err := services.NewAuthService(rm.UserStore(db), password.NewHasher(0), nil, nil, logging.Nop{})
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := authctl.Run(ctx, args, svc, os.Stdout); err != nil {
		if errors.Is(err, authctl.ErrUsage) {
			log.Fatal(err)
		}
		log.Fatalf("%s: %v", args[0], err)
	}
}
