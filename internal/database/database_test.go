package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"yatube/internal/config"
	"yatube/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger, logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "yatube"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=yatube sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	base := NewGormLogger(middleware.Logger, logger.Warn)
	verbose := base.LogMode(logger.Info).(*GormLogger)

	assert.Equal(t, logger.Warn, base.Config.LogLevel)
	assert.Equal(t, logger.Info, verbose.Config.LogLevel)
	assert.Equal(t, SlowQueryThreshold, verbose.Config.SlowThreshold)

	// must not panic for any branch
	verbose.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	verbose.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	verbose.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 0 }, nil)
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"users", "groups", "posts", "comments", "follows"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("follows", "idx_follows_pair"))
}

func TestEmbeddedMigrations(t *testing.T) {
	set := GetMigrations()
	require.NotEmpty(t, set)
	assert.Equal(t, 1, set[0].Version)
	assert.Equal(t, "init", set[0].Name)
	assert.Contains(t, set[0].UpScript, "idx_follows_pair")
	assert.Contains(t, set[0].DownScript, "DROP TABLE IF EXISTS follows")
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("B")},
		"m/000002_second.down.sql": {Data: []byte("b")},
		"m/000001_first.up.sql":    {Data: []byte("A")},
		"m/000001_first.down.sql":  {Data: []byte("a")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	set, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "000001_first", set[0].String())
	assert.Equal(t, "b", set[1].DownScript)
}

func TestLoadMigrations_Errors(t *testing.T) {
	missingDown := fstest.MapFS{"m/000001_first.up.sql": {Data: []byte("A")}}
	_, err := LoadMigrations(missingDown, "m")
	assert.Error(t, err)

	badVersion := fstest.MapFS{
		"m/abc_first.up.sql":   {Data: []byte("A")},
		"m/abc_first.down.sql": {Data: []byte("a")},
	}
	_, err = LoadMigrations(badVersion, "m")
	assert.Error(t, err)
}

func sqliteMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE widgets"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE gadgets"},
	}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	set := sqliteMigrations()

	require.NoError(t, applyMigrations(ctx, db, set))
	require.NoError(t, applyMigrations(ctx, db, set))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("gadgets"))
}

func TestApplyMigrations_RejectsUnknownVersions(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, applyMigrations(ctx, db, sqliteMigrations()))
	err := applyMigrations(ctx, db, sqliteMigrations()[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002")
}

func TestRollback(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	set := sqliteMigrations()
	require.NoError(t, applyMigrations(ctx, db, set))

	require.NoError(t, rollback(ctx, db, set, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))

	assert.Error(t, rollback(ctx, db, set, 2), "already rolled back")
	assert.Error(t, rollback(ctx, db, set, 9), "unknown version")
}

func TestGetAppliedMigrations_MissingTable(t *testing.T) {
	db := openSQLite(t)
	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mode    string
		sql     bool
		auto    bool
		wantErr bool
	}{
		{"default is hybrid in development", "development", "", true, true, false},
		{"hybrid in production skips automigrate", "production", "hybrid", true, false, false},
		{"sql only", "development", "sql", true, false, false},
		{"auto in development", "development", "auto", false, true, false},
		{"auto refused in production", "prod", "auto", false, false, true},
		{"unknown mode", "development", "yolo", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&config.Config{Env: tt.env, DBSchemaMode: tt.mode})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sql, runSQL)
			assert.Equal(t, tt.auto, runAuto)
		})
	}
}

func TestPending(t *testing.T) {
	out := pending([]int{1}, sqliteMigrations())
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Version)
}
