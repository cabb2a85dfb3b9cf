package store

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestGormStore_SaveAndRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sketch"),
		postgres.WithUsername("sketch"),
		postgres.WithPassword("sketch"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	older := types.GameResult{
		Code: "ROOM01", TotalRounds: 2, FinishedAt: 1_700_000_000_000,
		Leaderboard: []types.Score{{Username: "ann", Score: 550}, {Username: "bob", Score: 300}},
	}
	newer := types.GameResult{
		Code: "ROOM01", TotalRounds: 1, FinishedAt: 1_700_000_100_000,
		Leaderboard: []types.Score{{Username: "bob", Score: 250}, {Username: "ann", Score: 0}},
	}
	other := types.GameResult{Code: "ROOM02", TotalRounds: 1, FinishedAt: 1_700_000_200_000, Leaderboard: []types.Score{{Username: "cid", Score: 50}}}

	for _, r := range []types.GameResult{older, newer, other} {
		require.NoError(t, s.Save(ctx, r))
	}

	got, err := s.Recent(ctx, "ROOM01", 10)
	require.NoError(t, err)
	assert.Equal(t, []types.GameResult{newer, older}, got)

	got, err = s.Recent(ctx, "ROOM01", 1)
	require.NoError(t, err)
	assert.Equal(t, []types.GameResult{newer}, got)

	got, err = s.Recent(ctx, "NOPE", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
