package helper

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "enricher_test"
	testUsername = "postgres"
	testPassword = "postgres"
)

// MustStartPostgresContainer starts a pgvector-enabled Postgres container
// for tests and returns its teardown function and mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	dbContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, "", NewError("start postgres container", err)
	}

	mappedPort, err := dbContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, "", NewError("get mapped port", err)
	}

	return dbContainer.Terminate, mappedPort.Port(), nil
}

// SetTestDatabaseConfigEnvs points the database configuration envs at the
// test container listening on the given port.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", port)
	t.Setenv("DB_DATABASE", testDatabase)
	t.Setenv("DB_USERNAME", testUsername)
	t.Setenv("DB_PASSWORD", testPassword)
	t.Setenv("DB_SCHEMA", "public")
}
