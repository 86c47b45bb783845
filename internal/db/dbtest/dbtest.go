// Package dbtest opens isolated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tinynews/internal/config"
	"github.com/tinynews/internal/db"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Open returns a migrated sqlite database that lives until the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:tinynews-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), seq.Add(1))
	gdb, err := db.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: dsn}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}
