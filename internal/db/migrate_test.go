package db

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateCreatesLedgerTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{"customers", "history_entries", "operators"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, column := range []string{"card_id", "credits", "last_payment", "expires_on"} {
		if !conn.Migrator().HasColumn("customers", column) {
			t.Fatalf("customers missing column %s", column)
		}
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@localhost:5432/loyalty", DialectPostgres},
		{"postgresql://localhost/loyalty", DialectPostgres},
		{"host=localhost user=loyalty dbname=loyalty sslmode=disable", DialectPostgres},
		{"file:loyalty.db", DialectSQLite},
		{"sqlite://loyalty.db", DialectSQLite},
		{"loyalty.db", DialectSQLite},
		{":memory:", DialectSQLite},
	}
	for _, tc := range cases {
		got, err := detectDialectFromDSN(tc.dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", tc.dsn, err)
		}
		if got != tc.want {
			t.Fatalf("detect %q: got %s want %s", tc.dsn, got, tc.want)
		}
	}

	if _, err := detectDialectFromDSN("mysql://nope"); err == nil {
		t.Fatalf("expected error for unsupported dsn")
	}
}

func TestEnsureSQLiteParamsPreservesExisting(t *testing.T) {
	out := ensureSQLiteParams("file:ledger.db?_journal_mode=DELETE")
	if !strings.Contains(out, "_journal_mode=DELETE") {
		t.Fatalf("existing param dropped: %s", out)
	}
	if !strings.Contains(out, "_busy_timeout=5000") {
		t.Fatalf("default param missing: %s", out)
	}
}
