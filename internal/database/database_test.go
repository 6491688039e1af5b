package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/config"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect(config.DatabaseDriverSQLite, "file:database_migrate?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "teaching_classes", "forum_posts", "student_submissions", "question_scores"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect(config.DatabaseDriverPostgres, "")
	require.Error(t, err)
	_, err = ConnectSQLite("")
	require.Error(t, err)
	_, err = ConnectNATS("", "portal")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), "redis://"+addr)
	require.ErrorContains(t, err, "ping redis")

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "not a url")
	require.ErrorContains(t, err, "parse redis url")
}
