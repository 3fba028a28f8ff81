// The migrate binary applies the embedded schema migrations.
//
//	migrate up
//	migrate down
package main

import (
	"log"
	"os"

	"commie/backend/internal/config"
	"commie/backend/internal/db/migrate"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}
	if direction != "up" && direction != "down" {
		log.Fatalf("usage: migrate [up|down]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		log.Fatalf("migrate %s: %v", direction, err)
	}
	log.Printf("migrations %s complete", direction)
}
