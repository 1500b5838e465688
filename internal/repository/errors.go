// Package repository persists keyed records: opaque byte blobs stored
// under a string key together with a version number. Every backend
// offers the same compare-and-set contract so callers can detect two
// writers racing on the same record instead of silently losing one
// write.
package repository

import "errors"

// ErrKeyNotFound is returned by Get when nothing is stored under the
// key.
var ErrKeyNotFound = errors.New("key not found")

// ErrVersionMismatch is returned by Put when the stored version differs
// from the version the caller based its write on. Callers should re-read
// and retry; the store layer translates it into apperr.ErrConflict.
var ErrVersionMismatch = errors.New("version mismatch")
