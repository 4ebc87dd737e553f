package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/dineops-backend/internal/domain"
)

func TestDSNPrefersDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:6543/loyalty")
	if got := DSN(); got != "postgres://u:p@db:6543/loyalty" {
		t.Fatalf("dsn: got=%q", got)
	}
}

func TestDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "pg")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_NAME", "dineops_test")
	t.Setenv("POSTGRES_SSLMODE", "")
	want := "postgres://app:pw@pg:5433/dineops_test?sslmode=disable"
	if got := DSN(); got != want {
		t.Fatalf("dsn: want=%q got=%q", want, got)
	}
}

func TestAutoMigrateAllCreatesEveryTable(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, m := range types.Models() {
		if !gdb.Migrator().HasTable(m) {
			t.Fatalf("table missing for %T", m)
		}
	}
}
