package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// embeddedDir is the migrations directory inside Migrations.
const embeddedDir = "migrations"

// Migrations carries the SQL migrations into the binary so deployed services
// do not depend on the source tree.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Source is a set of goose migrations, either on disk or compiled in.
type Source struct {
	fsys fs.FS
	dir  string
	name string
}

// Disk reads migrations from dir at run time.
func Disk(dir string) Source {
	return Source{dir: dir, name: dir}
}

// Embedded uses the migrations compiled into the binary.
func Embedded() Source {
	return Source{fsys: Migrations, dir: embeddedDir, name: "embedded:" + embeddedDir}
}

func (s Source) String() string { return s.name }

// Validate runs ValidateFS over the source.
func (s Source) Validate() error {
	if s.dir == "" {
		return fmt.Errorf("dir is required")
	}
	if s.fsys == nil {
		return ValidateFS(os.DirFS(s.dir), ".")
	}
	return ValidateFS(s.fsys, s.dir)
}

// with points goose at the source for the duration of fn. The schema is
// Postgres only; sqlite databases are built by gorm AutoMigrate.
func (s Source) with(fn func() error) error {
	if err := s.Validate(); err != nil {
		return err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(s.fsys)
	defer goose.SetBaseFS(nil)
	return fn()
}

// Run executes a goose command (up, down, status, redo...) against db.
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	return src.with(func() error {
		// RunContext prints status output to stdout (goose internal)
		if err := goose.RunContext(ctx, command, db, src.dir, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// RunEmbedded runs command against the migrations compiled into the binary.
func RunEmbedded(ctx context.Context, db *sql.DB, command string, args ...string) error {
	return Run(ctx, db, Embedded(), command, args...)
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil || len(targetVersion) != len(versionLayout) {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", targetVersion)
	}

	return src.with(func() error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current == target:
			return nil
		case current < target:
			if err := goose.UpToContext(ctx, db, src.dir, target); err != nil {
				return fmt.Errorf("goose up-to %d: %w", target, err)
			}
		default:
			if err := goose.DownToContext(ctx, db, src.dir, target); err != nil {
				return fmt.Errorf("goose down-to %d: %w", target, err)
			}
		}
		return nil
	})
}
