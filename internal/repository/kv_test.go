package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV checks the compare-and-set contract every backend shares.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "showcase:catalog")
	require.ErrorIs(t, err, ErrKeyNotFound)

	v, err := kv.Put(ctx, "showcase:catalog", []byte(`{"a":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	_, err = kv.Put(ctx, "showcase:catalog", []byte(`{"a":2}`), 0)
	require.ErrorIs(t, err, ErrVersionMismatch, "create over an existing key")

	v, err = kv.Put(ctx, "showcase:catalog", []byte(`{"a":3}`), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)

	_, err = kv.Put(ctx, "showcase:catalog", []byte(`{"a":4}`), 1)
	require.ErrorIs(t, err, ErrVersionMismatch, "stale version")

	rec, err := kv.Get(ctx, "showcase:catalog")
	require.NoError(t, err)
	assert.Equal(t, `{"a":3}`, string(rec.Data))
	assert.Equal(t, uint64(2), rec.Version)

	// Keys are independent.
	_, err = kv.Get(ctx, "showcase:credential")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// exerciseRace has several writers start from the same version; exactly
// one may win.
func exerciseRace(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	_, err := kv.Put(ctx, "race", []byte("base"), 0)
	require.NoError(t, err)

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := kv.Put(ctx, "race", []byte("next"), 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemory(t *testing.T) {
	exerciseKV(t, NewMemory())
	exerciseRace(t, NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	data := []byte("abc")
	_, err := m.Put(context.Background(), "k", data, 0)
	require.NoError(t, err)
	data[0] = 'X'

	rec, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(rec.Data))
}

func TestFile(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	exerciseKV(t, f)
	exerciseRace(t, f)
}

func TestFile_SharedDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFile(dir)
	require.NoError(t, err)
	b, err := NewFile(dir)
	require.NoError(t, err)

	_, err = a.Put(context.Background(), "k", []byte("from a"), 0)
	require.NoError(t, err)
	rec, err := b.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "from a", string(rec.Data))

	_, err = b.Put(context.Background(), "k", []byte("from b"), 0)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseKV(t, s)
	exerciseRace(t, s)
}

func TestOpen(t *testing.T) {
	kv, err := Open(context.Background(), Options{Backend: BackendMemory}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(context.Background(), Options{Backend: BackendFile, Dir: t.TempDir()}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &File{}, kv)

	_, err = Open(context.Background(), Options{Backend: BackendRedis}, nil, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Backend: "etcd"}, nil, nil)
	assert.Error(t, err)
}
