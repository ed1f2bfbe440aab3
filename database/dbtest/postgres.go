//go:build integration
// +build integration

// Package dbtest starts throwaway PostgreSQL servers for integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"estante/common"
)

// Postgres starts a PostgreSQL container for the test and returns an empty,
// unmigrated connection to it. The container is removed when the test ends.
func Postgres(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("estante"),
		postgres.WithUsername("estante"),
		postgres.WithPassword("estante"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	db, err := common.ConnectDb(common.Config{DatabaseURL: connStr}, logger)
	require.NoError(t, err)
	return db
}
