package data

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresSnapshot_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("chefskiss"),
		postgres.WithUsername("chefskiss"),
		postgres.WithPassword("chefskiss"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	tbl, err := ReadCSV(strings.NewReader(testCSV))
	require.NoError(t, err)

	require.NoError(t, Save(ctx, dsn, tbl))

	got, err := Load(ctx, dsn)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, got.Columns)
	assert.Equal(t, tbl.Rows, got.Rows)

	// saving again replaces rather than appends
	require.NoError(t, Save(ctx, dsn, tbl))
	got, err = Load(ctx, dsn)
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), got.Len())
}
