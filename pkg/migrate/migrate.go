// Package migrate wraps goose for the marketplace schema. Migrations are
// embedded in every binary; the migrate command can also point at a
// directory on disk while authoring new ones.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var Embedded embed.FS

// Source is where goose reads migrations from. A nil FS means disk.
type Source struct {
	FS  fs.FS
	Dir string
}

func EmbeddedSource() Source { return Source{FS: Embedded, Dir: "migrations"} }

func DirSource(dir string) Source { return Source{Dir: dir} }

func (s Source) String() string {
	if s.FS != nil {
		return "embedded"
	}
	return s.Dir
}

func (s Source) use() error {
	if s.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	goose.SetBaseFS(s.FS)
	return goose.SetDialect("postgres")
}

// Run executes a goose command such as up, down, status or redo.
func Run(ctx context.Context, conn *sql.DB, src Source, command string, args ...string) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := src.use(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, conn, src.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to target, given as the
// YYYYMMDDHHMMSS prefix of a migration file.
func MigrateToVersion(ctx context.Context, conn *sql.DB, src Source, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	if err := src.use(); err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < version:
		err = goose.UpToContext(ctx, conn, src.Dir, version)
	case current > version:
		err = goose.DownToContext(ctx, conn, src.Dir, version)
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

// MaybeRunDev applies the embedded migrations on startup when running in
// dev with the auto-migrate flag set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	conn, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	src := EmbeddedSource()
	if err := Run(ctx, conn, src, "up"); err != nil {
		return err
	}
	version, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"source": src.String(), "schema_version": version}), "dev migrations applied")
	return nil
}
