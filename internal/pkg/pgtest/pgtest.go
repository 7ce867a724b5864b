// Package pgtest starts a throwaway Postgres with the service schema applied.
// It is meant for tests only.
package pgtest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/bgvotp/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:17-alpine"

// New runs a Postgres container, migrates it and returns a pool bound to t's
// lifetime. The test is skipped when no container runtime is available.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("bgvotp"),
		tcpostgres.WithUsername("bgvotp"),
		tcpostgres.WithPassword("bgvotp"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Up(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// Account is the minimal row needed to issue login codes.
type Account struct {
	ID       int64
	Phone    string
	Email    string
	FullName string
	Role     string
	IsActive bool
}

// InsertAccount writes acc into the accounts table.
func InsertAccount(t *testing.T, pool *pgxpool.Pool, acc Account) {
	t.Helper()

	var email *string
	if acc.Email != "" {
		email = &acc.Email
	}

	_, err := pool.Exec(context.Background(),
		`insert into accounts (id, phone_number, email, full_name, role, is_active) values ($1, $2, $3, $4, $5, $6)`,
		acc.ID, acc.Phone, email, acc.FullName, acc.Role, acc.IsActive,
	)
	require.NoError(t, err)
}
