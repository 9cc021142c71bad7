// Command migrate aplica o revierte las migraciones SQL de migrations/.
//
//	go run ./cmd/migrate            # up
//	go run ./cmd/migrate -down 1    # revierte una versión
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jhoicas/zimra-fiscal/pkg/config"
	"github.com/jhoicas/zimra-fiscal/pkg/logger"
)

func main() {
	down := flag.Int("down", 0, "cantidad de versiones a revertir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	m, err := migrate.New("file://"+cfg.App.MigrationsPath, pgx5URL(cfg.DB.ConnectionString()))
	if err != nil {
		log.Fatal().Err(err).Msg("crear instancia de migración")
	}
	defer m.Close()

	if *down > 0 {
		err = m.Steps(-*down)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("aplicar migraciones")
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migraciones al día")
}

// pgx5URL adapta el esquema del DSN al driver pgx/v5 de golang-migrate.
func pgx5URL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}
