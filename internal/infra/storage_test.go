package infra

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"inos/internal/models/state_models"
	"inos/internal/store"
)

func TestFileStorageRoundTrip(t *testing.T) {
	fs, err := NewFileStorage(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = fs.Load(ctx, "inos-storage")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, fs.Save(ctx, "inos-storage", []byte(`{"a":1}`)))
	raw, err := fs.Load(ctx, "inos-storage")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	require.NoError(t, fs.Remove(ctx, "inos-storage"))
	require.NoError(t, fs.Remove(ctx, "inos-storage"))
	_, err = fs.Load(ctx, "inos-storage")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStorageSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save(context.Background(), "../escape/key", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.Contains(entries[0].Name(), "/"))
}

func TestStoreOverFileStorageDiscardsOversizedBlob(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Save(context.Background(), store.DefaultKey, []byte(strings.Repeat(" ", 600000))))

	s := store.New(fs)
	require.NoError(t, s.Hydrate(context.Background()))

	_, err = fs.Load(context.Background(), store.DefaultKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	s.AddAnalysis(state_models.SkinAnalysis{ID: "a1", PhotoURI: "file:///tmp/p.jpg"})
	raw, err := fs.Load(context.Background(), store.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"a1"`)
	assert.NotContains(t, string(raw), "file:///")
}

func TestRedisClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, "redis://127.0.0.1:1/0")
	assert.Error(t, err)
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestPostgresStorageLoad(t *testing.T) {
	db, mock := newMockGorm(t)
	ps := &PostgresStorage{db: db}

	mock.ExpectQuery(`SELECT \* FROM "client_states"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).
			AddRow("inos-storage", []byte(`{"orders":[]}`), time.Now()))

	raw, err := ps.Load(context.Background(), "inos-storage")
	require.NoError(t, err)
	assert.Equal(t, `{"orders":[]}`, string(raw))

	mock.ExpectQuery(`SELECT \* FROM "client_states"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))

	_, err = ps.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorageSaveUpserts(t *testing.T) {
	db, mock := newMockGorm(t)
	ps := &PostgresStorage{db: db}

	mock.ExpectExec(`INSERT INTO "client_states" .* ON CONFLICT \("key"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ps.Save(context.Background(), "inos-storage", []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
