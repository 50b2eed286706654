package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itvetl/internal/domain"
	"itvetl/internal/storage"
)

func newFileStore(t *testing.T, path string) *wrappedRepo {
	t.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: path})
	require.NoError(t, err)
	w := &wrappedRepo{Repository: r, closeFn: closeFn}
	t.Cleanup(w.Close)
	return w
}

func fixed(name, province, locality string) domain.UnifiedData {
	return domain.UnifiedData{
		Source: domain.SourceCAT,
		Station: domain.Station{
			Name:       name,
			Type:       domain.TypeFixed,
			Address:    domain.StrPtr("Carrer 3, 14"),
			PostalCode: domain.StrPtr("08080"),
			Latitude:   domain.FloatPtr(41.35012),
			Longitude:  domain.FloatPtr(2.14561),
			Schedule:   "L-V 8-20",
			URL:        domain.StrPtr("https://itv.example"),
		},
		Province: province,
		Locality: locality,
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestLoadIntoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itv.db")
	store := newFileStore(t, path)
	loader := storage.NewLoader(store, nil)
	ctx := context.Background()

	mobile := domain.UnifiedData{
		Source:   domain.SourceCV,
		Station:  domain.Station{Name: "Estación ITV (Móvil) Valencia 01", Type: domain.TypeMobile},
		Province: "Valencia",
	}
	stats, err := loader.Load(ctx, []domain.UnifiedData{
		fixed("Estación ITV de Terrassa", "Barcelona", "Terrassa"),
		fixed("Estación ITV de Sabadell", "BARCELONA", "Sabadell"),
		fixed("ESTACIÓN ITV DE TERRASSA", "Barcelona", "Terrassa"),
		mobile,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Loaded)
	require.Len(t, stats.Discards, 1)
	assert.Equal(t, domain.ReasonDuplicate, stats.Discards[0].Reason)

	db := store.db
	assert.Equal(t, 2, countRows(t, db, "province"))
	assert.Equal(t, 2, countRows(t, db, "locality"))
	assert.Equal(t, 3, countRows(t, db, "station"))

	var (
		postal   string
		lat      float64
		locality sql.NullInt64
	)
	require.NoError(t, db.QueryRow(
		"SELECT postal_code, latitude, locality_code FROM station WHERE name = ?", "Estación ITV de Terrassa",
	).Scan(&postal, &lat, &locality))
	assert.Equal(t, "08080", postal)
	assert.InDelta(t, 41.35012, lat, 1e-9)
	assert.True(t, locality.Valid)

	var address sql.NullString
	require.NoError(t, db.QueryRow(
		"SELECT address, locality_code FROM station WHERE type = ?", string(domain.TypeMobile),
	).Scan(&address, &locality))
	assert.False(t, address.Valid)
	assert.False(t, locality.Valid, "mobile station without locality")

	// A second load replaces the first one entirely.
	stats, err = loader.Load(ctx, []domain.UnifiedData{fixed("Estación ITV de Reus", "Tarragona", "Reus")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)

	db = store.db
	assert.Equal(t, 1, countRows(t, db, "province"))
	assert.Equal(t, 1, countRows(t, db, "station"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRebuildRemovesSidecars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "itv.db")
	store := newFileStore(t, path)
	require.NoError(t, os.WriteFile(path+"-wal", nil, 0o644))

	require.NoError(t, store.Rebuild(context.Background()))

	_, err := os.Stat(path + "-wal")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, countRows(t, store.db, "station"))
}

func TestLoadRollsBackOnStationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newFromDB(db, Config{DSN: ":memory:"})
	store := &wrappedRepo{Repository: repo}

	for _, table := range []string{"station", "locality", "province"} {
		mock.ExpectExec("DROP TABLE IF EXISTS " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for _, table := range []string{"province", "locality", "station"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO province").WithArgs("Barcelona").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO locality").WithArgs("Terrassa", int64(7)).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("INSERT INTO station").WillReturnError(errors.New("UNIQUE constraint failed"))
	mock.ExpectRollback()

	stats, err := storage.NewLoader(store, nil).Load(context.Background(),
		[]domain.UnifiedData{fixed("Estación ITV de Terrassa", "Barcelona", "Terrassa")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
	assert.Zero(t, stats.Loaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err = newFromDB(db, Config{DSN: ":memory:"}).Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: begin tx")
}

func TestFilePath(t *testing.T) {
	cases := map[string]string{
		"itv.db":                              "itv.db",
		"file:itv.db?_pragma=foreign_keys(1)": "itv.db",
		":memory:":                            "",
		"file::memory:?cache=shared":          "",
		"file:test.db?mode=memory":            "",
	}
	for dsn, want := range cases {
		assert.Equal(t, want, filePath(dsn), dsn)
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{cfg: Config{DSN: "x.db"}, path: "x.db"}
	)
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	st, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "x.db", gotCfg.DSN)

	w, ok := st.(*wrappedRepo)
	require.True(t, ok, "got %T", st)
	assert.Same(t, fake, w.Repository)
	assert.Equal(t, "x.db", st.Location())

	st.Close()
	assert.True(t, closed)
}

func TestNewRepositoryEmptyDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{DSN: "  "})
	assert.Error(t, err)
}
