package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itvetl/internal/domain"
)

type fakeProvince struct{ name string }

type fakeLocality struct {
	name     string
	province int64
}

type fakeStation struct {
	station  domain.Station
	locality *int64
}

// fakeStore keeps committed rows in memory. failStation makes the station
// insert with that name fail.
type fakeStore struct {
	location    string
	failStation string
	failCommit  bool

	rebuilds   int
	provinces  []fakeProvince
	localities []fakeLocality
	stations   []fakeStation
	rolledBack bool
}

func (s *fakeStore) Location() string { return s.location }
func (s *fakeStore) Close()           {}

func (s *fakeStore) Rebuild(context.Context) error {
	s.rebuilds++
	s.provinces, s.localities, s.stations = nil, nil, nil
	return nil
}

func (s *fakeStore) Begin(context.Context) (Tx, error) {
	return &fakeTx{store: s}, nil
}

type fakeTx struct {
	store      *fakeStore
	provinces  []fakeProvince
	localities []fakeLocality
	stations   []fakeStation
}

func (t *fakeTx) InsertProvince(_ context.Context, name string) (int64, error) {
	t.provinces = append(t.provinces, fakeProvince{name})
	return int64(len(t.provinces)), nil
}

func (t *fakeTx) InsertLocality(_ context.Context, name string, province int64) (int64, error) {
	t.localities = append(t.localities, fakeLocality{name, province})
	return int64(len(t.localities)), nil
}

func (t *fakeTx) InsertStation(_ context.Context, st domain.Station, locality *int64) (int64, error) {
	if st.Name == t.store.failStation {
		return 0, errors.New("constraint failed")
	}
	t.stations = append(t.stations, fakeStation{st, locality})
	return int64(len(t.stations)), nil
}

func (t *fakeTx) Commit(context.Context) error {
	if t.store.failCommit {
		return errors.New("disk I/O error")
	}
	t.store.provinces = t.provinces
	t.store.localities = t.localities
	t.store.stations = t.stations
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.store.rolledBack = true
	return nil
}

func unified(src domain.Source, name string, typ domain.StationType, province, locality string) domain.UnifiedData {
	return domain.UnifiedData{
		Source:   src,
		Station:  domain.Station{Name: name, Type: typ},
		Province: province,
		Locality: locality,
	}
}

func TestRegisterAndNew(t *testing.T) {
	Register("fake", func(ctx context.Context, cfg Config) (Store, error) {
		return &fakeStore{location: cfg.DSN}, nil
	})

	st, err := New(context.Background(), Config{Kind: "fake", DSN: "mem"})
	require.NoError(t, err)
	assert.Equal(t, "mem", st.Location())
	assert.Contains(t, ListKinds(), "fake")
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), `"does-not-exist"`)
}

func TestRegisterFactoryError(t *testing.T) {
	want := errors.New("boom")
	Register("errkind", func(context.Context, Config) (Store, error) { return nil, want })

	_, err := New(context.Background(), Config{Kind: "errkind"})
	assert.ErrorIs(t, err, want)
}

func TestLoadCachesReferenceRows(t *testing.T) {
	store := &fakeStore{location: t.Name()}
	data := []domain.UnifiedData{
		unified(domain.SourceCAT, "Estación ITV de Reus", domain.TypeFixed, "Tarragona", "Reus"),
		unified(domain.SourceCAT, "Estación ITV de Valls", domain.TypeFixed, "TARRAGONA", "Valls"),
		unified(domain.SourceCAT, "Estación ITV de Reus 2", domain.TypeFixed, "Tarragona", "reus"),
		unified(domain.SourceCV, "Estación ITV (Móvil) Valencia 01", domain.TypeMobile, "Valencia", ""),
	}

	stats, err := NewLoader(store, nil).Load(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Loaded)
	assert.Empty(t, stats.Discards)
	assert.Equal(t, 1, store.rebuilds)
	assert.Equal(t, []fakeProvince{{"Tarragona"}, {"Valencia"}}, store.provinces)
	assert.Equal(t, []fakeLocality{{"Reus", 1}, {"Valls", 1}}, store.localities)

	require.Len(t, store.stations, 4)
	require.NotNil(t, store.stations[2].locality)
	assert.Equal(t, int64(1), *store.stations[2].locality)
	assert.Nil(t, store.stations[3].locality, "empty locality is stored as NULL")
}

func TestLoadLocalityScopedByProvince(t *testing.T) {
	store := &fakeStore{location: t.Name()}
	data := []domain.UnifiedData{
		unified(domain.SourceGAL, "A", domain.TypeFixed, "Lugo", "Castro"),
		unified(domain.SourceGAL, "B", domain.TypeFixed, "Ourense", "Castro"),
	}

	_, err := NewLoader(store, nil).Load(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, []fakeLocality{{"Castro", 1}, {"Castro", 2}}, store.localities)
}

func TestLoadDiscardsBatchDuplicates(t *testing.T) {
	store := &fakeStore{location: t.Name()}
	data := []domain.UnifiedData{
		unified(domain.SourceCV, "Estación ITV de Alzira", domain.TypeFixed, "Valencia", "Alzira"),
		unified(domain.SourceGAL, "ESTACIÓN ITV DE ALZIRA", domain.TypeFixed, "Valencia", "Alzira"),
		unified(domain.SourceGAL, "Estación ITV de Alzira", domain.TypeMobile, "Valencia", "Alzira"),
	}

	stats, err := NewLoader(store, nil).Load(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, []domain.DiscardedRecord{{
		Source:   domain.SourceGAL,
		Name:     "ESTACIÓN ITV DE ALZIRA",
		Locality: "Alzira",
		Reason:   domain.ReasonDuplicate,
	}}, stats.Discards)
}

func TestLoadRollsBackOnInsertError(t *testing.T) {
	store := &fakeStore{location: t.Name(), failStation: "B"}
	data := []domain.UnifiedData{
		unified(domain.SourceCAT, "A", domain.TypeFixed, "Girona", "Olot"),
		unified(domain.SourceCAT, "B", domain.TypeFixed, "Girona", "Olot"),
	}

	stats, err := NewLoader(store, nil).Load(context.Background(), data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `insert station "B"`)
	assert.True(t, store.rolledBack)
	assert.Zero(t, stats.Loaded)
	assert.Empty(t, store.stations, "nothing committed")
}

func TestLoadCommitFailure(t *testing.T) {
	store := &fakeStore{location: t.Name(), failCommit: true}

	_, err := NewLoader(store, nil).Load(context.Background(),
		[]domain.UnifiedData{unified(domain.SourceCAT, "A", domain.TypeFixed, "Girona", "Olot")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit load")
	assert.False(t, store.rolledBack)
}

// slowStore tracks how many loads run Rebuild concurrently.
type slowStore struct {
	fakeStore
	mu      sync.Mutex
	running int
	peak    int
}

func (s *slowStore) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	s.running++
	if s.running > s.peak {
		s.peak = s.running
	}
	s.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	s.mu.Lock()
	s.running--
	s.mu.Unlock()
	return nil
}

func (s *slowStore) Begin(context.Context) (Tx, error) {
	return &fakeTx{store: &s.fakeStore}, nil
}

func TestLoadSerializedPerLocation(t *testing.T) {
	shared := &slowStore{fakeStore: fakeStore{location: t.Name()}}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := NewLoader(shared, nil).Load(context.Background(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, shared.peak)
}
