package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/codec"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/repository"
)

// brokenKV fails every call.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (repository.Record, error) {
	return repository.Record{}, errors.New("disk on fire")
}

func (brokenKV) Put(context.Context, string, []byte, uint64) (uint64, error) {
	return 0, errors.New("disk on fire")
}

func (brokenKV) Close() error { return nil }

func sampleEvent(id string) model.EventRecord {
	aspect := model.Aspect9x16
	return model.EventRecord{
		ID:           id,
		Title:        "Wedding",
		Client:       "Ravi & Anu",
		Date:         "14-02-2026",
		PlayerAspect: &aspect,
		Views:        3,
		LikedBy:      []string{"Asha"},
		Chat: []model.ChatMessage{
			{Name: "Asha", Text: "congrats", At: time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)},
		},
	}
}

func TestRead_EmptyReturnsDefaults(t *testing.T) {
	s := New(repository.NewMemory(), Options{})
	c, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Version)
	assert.Equal(t, Defaults().Company, c.Company)
	assert.Empty(t, c.Events)
}

func TestInitializeDefaults_Idempotent(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemory()
	s := New(kv, Options{})

	require.NoError(t, s.InitializeDefaults(ctx))
	_, err := s.Update(ctx, func(c *model.Catalog) error {
		c.Company.Name = "Changed"
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.InitializeDefaults(ctx))
	c, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Changed", c.Company.Name)
	assert.Equal(t, uint64(2), c.Version)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	for _, name := range []string{"json", "cbor", "json+zstd", "cbor+zstd"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cd, err := codec.ByName(name)
			require.NoError(t, err)
			s := New(repository.NewMemory(), Options{Codec: cd})

			c, err := s.Read(ctx)
			require.NoError(t, err)
			c.Events = append(c.Events, sampleEvent("ev_1"))
			require.NoError(t, s.Write(ctx, &c))
			assert.Equal(t, uint64(1), c.Version)

			got, err := s.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestWrite_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	s := New(repository.NewMemory(), Options{})
	require.NoError(t, s.InitializeDefaults(ctx))

	a, err := s.Read(ctx)
	require.NoError(t, err)
	b, err := s.Read(ctx)
	require.NoError(t, err)

	a.Company.Name = "A"
	require.NoError(t, s.Write(ctx, &a))

	b.Company.Name = "B"
	err = s.Write(ctx, &b)
	require.ErrorIs(t, err, apperr.ErrConflict)

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Company.Name)
}

func TestRead_CorruptDataYieldsDefaults(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemory()
	_, err := kv.Put(ctx, "showcase:catalog", []byte("{not json"), 0)
	require.NoError(t, err)

	s := New(kv, Options{})
	c, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Company, c.Company)
	assert.Equal(t, uint64(1), c.Version)

	// The next write replaces the corrupt record.
	c.Company.Name = "Recovered"
	require.NoError(t, s.Write(ctx, &c))
	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Recovered", got.Company.Name)
}

func TestBackendFailure(t *testing.T) {
	ctx := context.Background()
	s := New(brokenKV{}, Options{})

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)

	c := Defaults()
	assert.ErrorIs(t, s.Write(ctx, &c), apperr.ErrStorageUnavailable)
	assert.ErrorIs(t, s.InitializeDefaults(ctx), apperr.ErrStorageUnavailable)
}

func TestObservers(t *testing.T) {
	ctx := context.Background()
	s := New(repository.NewMemory(), Options{})

	var got []Change
	cancel := s.OnCatalogChanged(func(ch Change) { got = append(got, ch) })

	_, err := s.Update(ctx, func(c *model.Catalog) error {
		c.Events = append(c.Events, sampleEvent("ev_1"))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Remote)
	assert.Len(t, got[0].Catalog.Events, 1)

	// Observers hold copies.
	got[0].Catalog.Events[0].Title = "mutated"
	c, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Wedding", c.Events[0].Title)

	require.NoError(t, s.Refresh(ctx))
	require.Len(t, got, 2)
	assert.True(t, got[1].Remote)

	cancel()
	require.NoError(t, s.Refresh(ctx))
	assert.Len(t, got, 2)
}

func TestUpdate_SlowObserverDoesNotBlockUpdates(t *testing.T) {
	ctx := context.Background()
	s := New(repository.NewMemory(), Options{})

	entered := make(chan struct{})
	release := make(chan struct{})
	var blocked atomic.Bool
	s.OnCatalogChanged(func(ch Change) {
		if blocked.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
	})

	slowDone := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, func(c *model.Catalog) error {
			c.Company.Name = "slow"
			return nil
		})
		slowDone <- err
	}()
	<-entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, func(c *model.Catalog) error {
			c.Company.IntroText = "fast"
			return nil
		})
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("update blocked behind a running observer")
	}
	close(release)
	require.NoError(t, <-slowDone)

	c, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "slow", c.Company.Name)
	assert.Equal(t, "fast", c.Company.IntroText)
}

func TestUpdateCounters_MarksChange(t *testing.T) {
	ctx := context.Background()
	s := New(repository.NewMemory(), Options{})

	var got []Change
	s.OnCatalogChanged(func(ch Change) { got = append(got, ch) })

	_, err := s.Update(ctx, func(c *model.Catalog) error {
		c.Events = append(c.Events, sampleEvent("ev_1"))
		return nil
	})
	require.NoError(t, err)
	c, err := s.UpdateCounters(ctx, func(c *model.Catalog) error {
		c.Events[0].Views++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.Events[0].Views)

	require.Len(t, got, 2)
	assert.False(t, got[0].CountersOnly)
	assert.True(t, got[1].CountersOnly)
	assert.Equal(t, int64(4), got[1].Catalog.Events[0].Views)
}

func TestUpdate_AbortsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	s := New(repository.NewMemory(), Options{})
	boom := errors.New("boom")
	_, err := s.Update(ctx, func(c *model.Catalog) error { return boom })
	require.ErrorIs(t, err, boom)

	c, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Version)
}

// racyKV bumps the stored record behind the caller's back on the first
// Put, simulating another process.
type racyKV struct {
	*repository.Memory
	once sync.Once
}

func (r *racyKV) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	r.once.Do(func() {
		_, _ = r.Memory.Put(ctx, key, data, expected)
	})
	return r.Memory.Put(ctx, key, data, expected)
}

func TestUpdate_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	s := New(&racyKV{Memory: repository.NewMemory()}, Options{})

	calls := 0
	c, err := s.Update(ctx, func(c *model.Catalog) error {
		calls++
		c.Company.Name = "Retried"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(2), c.Version)
}

func TestUpdate_ConcurrentIncrementsAllLand(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemory()
	a := New(kv, Options{MaxRetries: 50})
	b := New(kv, Options{MaxRetries: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		s := a
		if i%2 == 1 {
			s = b
		}
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, func(c *model.Catalog) error {
				c.Events = append(c.Events, model.EventRecord{ID: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := a.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Events, 20)
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
company:
  name: Lakeside Media
  defaultPlayerAspect: "9:16"
  contacts:
    - label: Phone
      value: "555-0100"
`), 0o644))

	c, err := LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "Lakeside Media", c.Company.Name)
	assert.Equal(t, model.Aspect9x16, c.Company.DefaultPlayerAspect)
	assert.Equal(t, []model.Contact{{Label: "Phone", Value: "555-0100"}}, c.Company.Contacts)
	assert.Equal(t, Defaults().Company.Landing, c.Company.Landing)

	require.NoError(t, os.WriteFile(path, []byte("company:\n  defaultPlayerAspect: \"3:2\"\n"), 0o644))
	_, err = LoadDefaults(path)
	assert.Error(t, err)
}
