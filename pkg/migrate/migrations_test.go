package migrate_test

import (
	"context"
	"database/sql"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders_table")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"product_id UUID NOT NULL REFERENCES products (id)",
		"CHECK (status IN ('Pending', 'Pending Payment', 'Shipped', 'Paid', 'Completed', 'Cancelled'))",
		"CHECK (payment_status IN ('Unpaid', 'Paid'))",
		"CREATE INDEX IF NOT EXISTS idx_orders_razorpay_order_id",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "create_products_table")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"variants JSONB NOT NULL",
		"version BIGINT NOT NULL DEFAULT 1",
		"DROP TABLE IF EXISTS products",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDir(t *testing.T) {
	embedded, err := fs.Glob(migrate.Migrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, %d on disk", len(embedded), len(onDisk))
	}
}

func TestCreateAndValidate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("validate created migration: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write bad migration: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename to fail validation")
	}
}

func TestValidateRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected missing down section to fail validation")
	}
}

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		DB:  config.DBConfig{DSN: "file:" + filepath.Join(t.TempDir(), "medorders.db")},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	client, err := db.New(ctx, config.StoreDriverSQLite, cfg.DB, logg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	for _, table := range []string{"accounts", "products", "orders"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Migrations, "migrations"); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
}

func TestCreateSortsAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235958_future.sql"
	body := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, future), []byte(body), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	path, err := migrate.CreateSQLMigration(dir, "next step")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if got := filepath.Base(path); got != "29991231235959_next_step.sql" {
		t.Fatalf("expected version bumped past newest file, got %s", got)
	}
}

func TestValidateRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_unbalanced.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected unbalanced statement markers to fail validation")
	}
}

func TestSourcesValidate(t *testing.T) {
	if err := migrate.Disk("migrations").Validate(); err != nil {
		t.Fatalf("disk source: %v", err)
	}
	if err := migrate.Embedded().Validate(); err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	if err := migrate.Disk("").Validate(); err == nil {
		t.Fatalf("expected empty dir to be rejected")
	}
	if got := migrate.Embedded().String(); got != "embedded:migrations" {
		t.Fatalf("unexpected source name %q", got)
	}
}

func TestMigrateToVersionRejectsMalformedVersion(t *testing.T) {
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, v := range []string{"", "2026", "not-a-version"} {
		if err := migrate.MigrateToVersion(context.Background(), sqlDB, migrate.Embedded(), v); err == nil {
			t.Fatalf("expected %q to be rejected", v)
		}
	}
}
