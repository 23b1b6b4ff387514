package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumns = []string{"node_id", "output", "tokens_used", "stored_at"}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS hookgrid_cache").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, NewPostgresStore(mock).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTableName(t *testing.T) {
	s := NewPostgresStore(nil, WithTableName("grid_cache"))
	assert.Equal(t, `"grid_cache"`, s.tableName)
}

func TestPostgresStore_Get(t *testing.T) {
	stored := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("hit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT node_id, output, tokens_used, stored_at FROM hookgrid_cache").
			WithArgs("k1").
			WillReturnRows(pgxmock.NewRows(entryColumns).AddRow("llm.a", []byte(`{"text":"hi","n":2}`), int64(7), stored))

		e, ok, err := NewPostgresStore(mock).Get(context.Background(), "k1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "llm.a", e.NodeID)
		assert.Equal(t, map[string]any{"text": "hi", "n": float64(2)}, e.Output)
		assert.Equal(t, int64(7), e.TokensUsed)
		assert.Equal(t, stored, e.StoredAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT node_id").WithArgs("k2").WillReturnRows(pgxmock.NewRows(entryColumns))

		_, ok, err := NewPostgresStore(mock).Get(context.Background(), "k2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT node_id").WithArgs("k3").WillReturnError(fmt.Errorf("connection refused"))

		_, _, err = NewPostgresStore(mock).Get(context.Background(), "k3")
		assert.ErrorContains(t, err, "cache: get: connection refused")
	})
}

func TestPostgresStore_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	stored := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec("INSERT INTO hookgrid_cache").
		WithArgs("k1", "llm.a", []byte(`{"text":"hi"}`), int64(3), stored).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewPostgresStore(mock).Put(context.Background(), "k1", Entry{
		NodeID:     "llm.a",
		Output:     map[string]any{"text": "hi"},
		TokensUsed: 3,
		StoredAt:   stored,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	err = NewPostgresStore(mock).Put(context.Background(), "k2", Entry{NodeID: "x", Output: make(chan int)})
	assert.ErrorContains(t, err, "encode output of 'x'")
}
