// Package dbtest opens isolated in-memory sqlite databases for repository
// and job tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a gorm handle on a private in-memory database with models
// migrated. Row locking clauses are stripped since sqlite has none.
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocking)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocking)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
	}
	return db
}

func stripLocking(d *gorm.DB) {
	sql := d.Statement.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		return
	}
	sql = strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
	sql = strings.ReplaceAll(sql, "FOR UPDATE", "")
	d.Statement.SQL.Reset()
	d.Statement.SQL.WriteString(sql)
}
