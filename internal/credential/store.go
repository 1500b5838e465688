// Package credential keeps the single admin credential. The password is
// never stored: only a salted SHA-256 digest, or a bcrypt hash when that
// scheme is selected.
package credential

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/codec"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/repository"
	"github.com/iliyamo/event-showcase/internal/utils"
)

// Options configures a Store.
type Options struct {
	Namespace         string
	BootstrapUser     string
	BootstrapPassword string
	Scheme            string // model.SchemeSHA256 (default) or model.SchemeBcrypt
	BcryptCost        int
	Codec             codec.Codec
	Logger            *slog.Logger
}

// Store reads and replaces the credential record.
type Store struct {
	kv     repository.KV
	key    string
	opts   Options
	codec  codec.Codec
	logger *slog.Logger
	now    func() time.Time
}

// Rotation asks to replace the credential. NewUsername and NewPassword
// default to the current values when empty.
type Rotation struct {
	CurrentUsername string
	CurrentPassword string
	NewUsername     string
	NewPassword     string
}

func New(kv repository.KV, opts Options) *Store {
	if opts.Namespace == "" {
		opts.Namespace = "showcase"
	}
	if opts.Scheme == "" {
		opts.Scheme = model.SchemeSHA256
	}
	c := opts.Codec
	if c == nil {
		c = codec.JSON{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		kv:     kv,
		key:    opts.Namespace + ":credential",
		opts:   opts,
		codec:  c,
		logger: logger.With("component", "credential"),
		now:    time.Now,
	}
}

// load returns the stored credential and its version. ok is false when
// none exists or the record cannot be decoded.
func (s *Store) load(ctx context.Context) (cred model.Credential, version uint64, ok bool, err error) {
	rec, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return model.Credential{}, 0, false, nil
	}
	if err != nil {
		return model.Credential{}, 0, false, apperr.StorageUnavailable("credential: read", err)
	}
	if err := s.codec.Unmarshal(rec.Data, &cred); err != nil || cred.Username == "" || cred.Digest == "" {
		s.logger.Warn("credential record unreadable", "key", s.key, "version", rec.Version, "error", err)
		return model.Credential{}, rec.Version, false, nil
	}
	return cred, rec.Version, true, nil
}

func (s *Store) save(ctx context.Context, cred model.Credential, expected uint64) error {
	data, err := s.codec.Marshal(cred)
	if err != nil {
		return apperr.StorageUnavailable("credential: encode", err)
	}
	if _, err := s.kv.Put(ctx, s.key, data, expected); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return apperr.Conflict("credential changed concurrently")
		}
		return apperr.StorageUnavailable("credential: write", err)
	}
	return nil
}

// newCredential derives a fresh credential for username and password
// under the configured scheme.
func (s *Store) newCredential(username, password string) (model.Credential, error) {
	cred := model.Credential{
		Username:  username,
		Scheme:    s.opts.Scheme,
		RotatedAt: s.now().UTC().Truncate(time.Second),
	}
	if s.opts.Scheme == model.SchemeBcrypt {
		h, err := utils.HashPassword(password, s.opts.BcryptCost)
		if err != nil {
			return model.Credential{}, err
		}
		cred.Digest = h
		return cred, nil
	}
	salt, err := utils.NewSaltHex()
	if err != nil {
		return model.Credential{}, err
	}
	cred.Salt = salt
	cred.Digest = utils.Digest(password, salt)
	return cred, nil
}

// Bootstrap creates the initial credential from the configured bootstrap
// user and password if none exists, and returns the stored credential.
// Calling it again, from any process, leaves the credential unchanged.
func (s *Store) Bootstrap(ctx context.Context) (model.Credential, error) {
	for {
		cur, version, ok, err := s.load(ctx)
		if err != nil {
			return model.Credential{}, err
		}
		if ok {
			return cur, nil
		}
		cred, err := s.newCredential(s.opts.BootstrapUser, s.opts.BootstrapPassword)
		if err != nil {
			return model.Credential{}, err
		}
		err = s.save(ctx, cred, version)
		if err == nil {
			s.logger.Info("admin credential created", "username", cred.Username, "scheme", cred.Scheme)
			return cred, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return model.Credential{}, err
		}
		// Another process bootstrapped first; read theirs.
	}
}

// matches reports whether username and password match cred.
func matches(cred model.Credential, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cred.Username)) == 1
	var passOK bool
	switch cred.Scheme {
	case model.SchemeBcrypt:
		passOK = utils.VerifyPassword(cred.Digest, password)
	default:
		got := utils.Digest(password, cred.Salt)
		passOK = subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(cred.Digest))) == 1
	}
	return userOK && passOK
}

// Verify reports whether username and password match the stored
// credential. It is false when no credential exists.
func (s *Store) Verify(ctx context.Context, username, password string) (bool, error) {
	cur, _, ok, err := s.load(ctx)
	if err != nil || !ok {
		return false, err
	}
	return matches(cur, username, password), nil
}

// Rotate replaces the credential after checking the current one. On any
// failure the stored credential is left as it was.
func (s *Store) Rotate(ctx context.Context, r Rotation) (model.Credential, error) {
	cur, version, ok, err := s.load(ctx)
	if err != nil {
		return model.Credential{}, err
	}
	if !ok || !matches(cur, r.CurrentUsername, r.CurrentPassword) {
		return model.Credential{}, apperr.InvalidCurrentCredential()
	}

	username := strings.TrimSpace(r.NewUsername)
	if username == "" {
		username = cur.Username
	}
	password := r.NewPassword
	if password == "" {
		password = r.CurrentPassword
	}
	next, err := s.newCredential(username, password)
	if err != nil {
		return model.Credential{}, err
	}
	if err := s.save(ctx, next, version); err != nil {
		return model.Credential{}, err
	}
	s.logger.Info("admin credential rotated", "username", next.Username, "scheme", next.Scheme)
	return next, nil
}

// Username returns the current admin username, or "" when no
// credential exists.
func (s *Store) Username(ctx context.Context) (string, error) {
	cur, _, ok, err := s.load(ctx)
	if err != nil || !ok {
		return "", err
	}
	return cur.Username, nil
}
