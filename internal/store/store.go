// Package store persists the catalog aggregate. Every mutation rewrites
// the whole catalog under one key with a compare-and-set on the stored
// version, so two writers that started from the same snapshot cannot
// both succeed.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/codec"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/repository"
)

const (
	DefaultNamespace  = "showcase"
	DefaultMaxRetries = 5
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Namespace  string
	Codec      codec.Codec
	MaxRetries int
	Defaults   *model.Catalog
	Logger     *slog.Logger
}

// Change is delivered to observers after the catalog changed. Remote is
// true when the change was written by another process and picked up by
// Refresh. CountersOnly marks a write made through UpdateCounters that
// touched nothing but counters such as views.
type Change struct {
	Catalog      model.Catalog
	Remote       bool
	CountersOnly bool
}

// Store reads and writes the catalog.
type Store struct {
	kv         repository.KV
	key        string
	codec      codec.Codec
	defaults   model.Catalog
	maxRetries int
	logger     *slog.Logger

	mu sync.Mutex // serializes Update; never held while observers run

	obsMu     sync.Mutex
	observers map[uint64]func(Change)
	nextObs   uint64
}

// New wraps kv. The catalog lives under "<namespace>:catalog".
func New(kv repository.KV, opts Options) *Store {
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	c := opts.Codec
	if c == nil {
		c = codec.JSON{}
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	defaults := Defaults()
	if opts.Defaults != nil {
		defaults = opts.Defaults.Clone()
	}
	defaults.Version = 0
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		kv:         kv,
		key:        ns + ":catalog",
		codec:      c,
		defaults:   defaults,
		maxRetries: retries,
		logger:     logger.With("component", "store"),
		observers:  make(map[uint64]func(Change)),
	}
}

// Key is the backend key holding the catalog.
func (s *Store) Key() string { return s.key }

// Read returns the persisted catalog. When nothing is stored yet it
// returns the defaults at version 0. Data that cannot be decoded is
// logged and replaced by the defaults, stamped with the stored version
// so the next Write overwrites it.
func (s *Store) Read(ctx context.Context) (model.Catalog, error) {
	rec, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return model.Catalog{}, apperr.StorageUnavailable("store: read catalog", err)
	}

	var c model.Catalog
	if err := s.codec.Unmarshal(rec.Data, &c); err != nil {
		s.logger.Warn("catalog unreadable, using defaults", "key", s.key, "version", rec.Version, "error", err)
		c = s.defaults.Clone()
	}
	c.Version = rec.Version
	return c, nil
}

// Write persists c as a whole, provided the stored version still equals
// c.Version. On success c.Version is advanced and observers are told. A
// stale c fails with apperr.ErrConflict and nothing is written.
func (s *Store) Write(ctx context.Context, c *model.Catalog) error {
	if err := s.write(ctx, c); err != nil {
		return err
	}
	s.notify(Change{Catalog: c.Clone()})
	return nil
}

func (s *Store) write(ctx context.Context, c *model.Catalog) error {
	out := *c
	out.Version = c.Version + 1
	data, err := s.codec.Marshal(out)
	if err != nil {
		return apperr.StorageUnavailable("store: encode catalog", err)
	}

	v, err := s.kv.Put(ctx, s.key, data, c.Version)
	if errors.Is(err, repository.ErrVersionMismatch) {
		return apperr.Conflict("catalog changed since version %d", c.Version)
	}
	if err != nil {
		return apperr.StorageUnavailable("store: write catalog", err)
	}
	c.Version = v
	s.logger.Debug("catalog written", "version", v, "events", len(c.Events))
	return nil
}

// InitializeDefaults seeds the defaults if nothing is stored. It is
// safe to call on every start and from several processes at once.
func (s *Store) InitializeDefaults(ctx context.Context) error {
	_, err := s.kv.Get(ctx, s.key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrKeyNotFound) {
		return apperr.StorageUnavailable("store: read catalog", err)
	}
	c := s.defaults.Clone()
	if err := s.Write(ctx, &c); err != nil && !errors.Is(err, apperr.ErrConflict) {
		return err
	}
	return nil
}

// Update applies fn to a fresh snapshot and writes the result. A write
// that loses a race with another process is retried on a new snapshot.
// An error from fn aborts without writing. Observers run after the
// in-process lock is released, so a slow observer does not hold up the
// next Update.
func (s *Store) Update(ctx context.Context, fn func(*model.Catalog) error) (model.Catalog, error) {
	return s.updateAndNotify(ctx, fn, false)
}

// UpdateCounters is Update for writes that only bump counters. Observers
// see CountersOnly set and may skip work such as dropping cached lists.
func (s *Store) UpdateCounters(ctx context.Context, fn func(*model.Catalog) error) (model.Catalog, error) {
	return s.updateAndNotify(ctx, fn, true)
}

func (s *Store) updateAndNotify(ctx context.Context, fn func(*model.Catalog) error, countersOnly bool) (model.Catalog, error) {
	c, err := s.update(ctx, fn)
	if err != nil {
		return model.Catalog{}, err
	}
	s.notify(Change{Catalog: c.Clone(), CountersOnly: countersOnly})
	return c, nil
}

func (s *Store) update(ctx context.Context, fn func(*model.Catalog) error) (model.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Catalog{}, err
		}
		c, err := s.Read(ctx)
		if err != nil {
			return model.Catalog{}, err
		}
		if err := fn(&c); err != nil {
			return model.Catalog{}, err
		}
		err = s.write(ctx, &c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return model.Catalog{}, err
		}
		lastErr = err
		s.logger.Info("catalog write conflict, retrying", "attempt", attempt+1)
	}
	return model.Catalog{}, lastErr
}

// OnCatalogChanged registers fn to run after every successful Write and
// Refresh. fn receives its own copy of the catalog. The returned func
// removes the observer.
func (s *Store) OnCatalogChanged(fn func(Change)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// Refresh re-reads the catalog and notifies observers with Remote set.
// It is called when another process announces a write.
func (s *Store) Refresh(ctx context.Context) error {
	c, err := s.Read(ctx)
	if err != nil {
		return err
	}
	s.notify(Change{Catalog: c, Remote: true})
	return nil
}

func (s *Store) notify(ch Change) {
	s.obsMu.Lock()
	fns := make([]func(Change), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for i, fn := range fns {
		c := ch
		if i > 0 {
			c.Catalog = ch.Catalog.Clone()
		}
		fn(c)
	}
}
