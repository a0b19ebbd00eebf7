package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB is a connection to the package's shared Postgres container.
type TestDB struct {
	DB        *database.DB
	Container testcontainers.Container
}

var (
	sharedMu sync.Mutex
	shared   *TestDB
)

// SetupTestDB returns the shared database with a freshly migrated schema.
// The container starts on first use and lives until TeardownTestDB.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		tdb, err := startPostgres(ctx)
		if err != nil {
			t.Fatalf("failed to start test database: %v", err)
		}
		shared = tdb
	}

	if err := shared.DB.Reset(ctx); err != nil {
		t.Fatalf("failed to reset schema: %v", err)
	}
	return shared
}

// TeardownTestDB stops the shared container. Call it from TestMain after
// m.Run.
func TeardownTestDB() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		return
	}
	shared.DB.Pool.Close()
	_ = shared.Container.Terminate(context.Background())
	shared = nil
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "linkshelf",
				"POSTGRES_PASSWORD": "linkshelf",
				"POSTGRES_DB":       "linkshelf_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://linkshelf:linkshelf@%s/linkshelf_test?sslmode=disable", endpoint))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connect: %w", err)
	}

	db := &database.DB{Pool: pool}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	return &TestDB{DB: db, Container: container}, nil
}
