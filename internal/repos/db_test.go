package repos

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"roomservice/internal/apperr"
	"roomservice/internal/config"
	"roomservice/internal/query"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t,
		"app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_txlock=immediate&_time_format=sqlite&_pragma=journal_mode(WAL)",
		sqliteDSN("app.db"))
	assert.NotContains(t, sqliteDSN("file::memory:?cache=shared"), "journal_mode")
	assert.Contains(t, sqliteDSN("file::memory:?cache=shared"), "?cache=shared&_pragma")
}

func TestOpenDB_SeedsOnceAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := config.DB{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "seed.db"), Seed: true}

	db, err := OpenDB(cfg, zap.New(core))
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("seeding demo data").Len())

	n, err := Users.Query(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, db.Close())

	db, err = OpenDB(cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, 1, logs.FilterMessage("seeding demo data").Len(), "existing data is not seeded again")
}

func TestOpenDB_UnknownDriver(t *testing.T) {
	_, err := OpenDB(config.DB{Driver: "oracle"}, nil)
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestUsers_PasswordHashIsReadOnly(t *testing.T) {
	db, err := OpenDB(config.DB{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "users.db"), Seed: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	_, err = Users.Query(db).Filter("password_hash", query.Like, "$2a$%").All(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidField)
	_, err = Users.Query(db).Sort("password_hash", query.Asc).All(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidField)
	_, err = Users.Update(ctx, db, 1, query.Fields{"password_hash": "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidField)

	u, err := NewUserRepo(db).ByEmail(ctx, "alice@roomservice.test")
	require.NoError(t, err)
	assert.NotEmpty(t, u.Hash, "the hash is still loaded for login")
}
