//go:build integration

// Package integration runs the ledger against a real PostgreSQL started with
// testcontainers, with the schema applied by the embedded migrations.
package integration

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/infrastructure/migration"
	"github.com/restodash/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// Shared container for all tests in the package
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a migrated database connection for one test
type TestDB struct {
	*persistence.Database
	SqlDB *sql.DB
	DSN   string
	t     *testing.T
}

// NewSharedTestDB returns a connection to the package container, starting and
// migrating it on first use. Tests clean up with CleanTables.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()

	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("pdv_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "Failed to get connection string")

		sharedContainer = container
		sharedContainerDSN = dsn

		db := connect(t, dsn)
		migrateUp(t, db.SqlDB)
		require.NoError(t, db.Close())
	}

	db := connect(t, sharedContainerDSN)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// CleanupSharedContainer terminates the shared container. Call it from TestMain.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}

// CleanTables empties the ledger tables, children first
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	// the movement trigger blocks DELETE, TRUNCATE bypasses it
	err := tdb.DB.Exec("TRUNCATE TABLE cash_movements, cash_registers, restaurants CASCADE").Error
	require.NoError(tdb.t, err, "Failed to truncate ledger tables")
}

// CreateRestaurant inserts a restaurant row and returns its ID
func (tdb *TestDB) CreateRestaurant(name string, active bool) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(
		"INSERT INTO restaurants (id, name, active) VALUES (?, ?, ?)",
		id, name, active,
	).Error
	require.NoError(tdb.t, err, "Failed to create test restaurant")
	return id
}

func connect(t *testing.T, dsn string) *TestDB {
	t.Helper()

	var opts []persistence.DatabaseOption
	if os.Getenv("TEST_DB_DEBUG") != "" {
		opts = append(opts, persistence.WithLogger(zap.NewExample(), gormlogger.Info))
	}

	db, err := persistence.Open(gormpostgres.Open(dsn), opts...)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &TestDB{Database: db, SqlDB: sqlDB, DSN: dsn, t: t}
}

func migrateUp(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
}
