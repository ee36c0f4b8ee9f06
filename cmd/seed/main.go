// Command seed registers the development identities in the configured
// database. It accepts the same configuration sources as the server.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/config"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/devicegate/internal/server/seed"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel).With("module", "seed")

	db, err := repomanager.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		log.Fatalf("repository manager init error: %v", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations error: %v", err)
	}

	n, err := seed.Run(ctx, db, rm, seed.DefaultIdentities, logger)
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	logger.Info(ctx, "seed finished", "created", n)
}
