// Package localstore implements the on-device storage backend. State
// lives as one JSON document per namespaced key under a data directory,
// with the per-user suffix keeping guest and account progress on the same
// machine from ever colliding:
//
//	courses__user_<id>.json       sparse completion map
//	focus_skill__user_<id>.json   active skill id
//	checkins__user_<id>.json      check-in log
//	accounts.json                 demo-grade account list
//	current_account.json          current-account pointer
//
// Writes go through a temp file and rename, guarded by a flock so a second
// process on the same machine cannot interleave.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// Document base names.
const (
	keyCourses        = "courses"
	keyFocusSkill     = "focus_skill"
	keyCheckins       = "checkins"
	keyAccounts       = "accounts"
	keyCurrentAccount = "current_account"
)

// Store is the shared file-store core. ProgressStore and AccountStore
// wrap it with the domain contracts.
type Store struct {
	dir  string
	lock *flock.Flock
	mu   sync.Mutex
	log  *logger.Logger
}

// New opens (creating if needed) the data directory.
func New(dir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localstore: create data dir: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
		log:  log.With(logger.Component("localstore")),
	}, nil
}

// Close releases the lock file handle.
func (s *Store) Close() error {
	return s.lock.Close()
}

// userKey builds the namespaced document name for a per-user key.
// Mirrors the "<base>__user_<id>" key shape of the browser store this
// backend replaces.
func userKey(base, userID string) string {
	return base + "__user_" + sanitize(userID)
}

// sanitize keeps user ids filesystem-safe. Emails pass through mostly
// unchanged; anything that could escape the directory is replaced.
func sanitize(id string) string {
	if id == "" {
		return shared.GuestUserID
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '@' || r == '.' || r == '-' || r == '_' || r == '+':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// withLock runs fn holding both the in-process mutex and the cross-process
// file lock.
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return shared.WrapError("localstore", "Lock", shared.ErrStoreUnavailable, "could not acquire store lock", err)
	}
	defer s.lock.Unlock()

	return fn()
}

// read unmarshals a document into v. A missing file leaves v untouched
// and returns false; a corrupt document is treated the same way, matching
// the tolerant parse of the store this replaces. Decoding goes through a
// scratch value: a failure partway into the document must not leave a
// half-filled v behind for the next write to persist.
func (s *Store) read(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, shared.WrapError("localstore", "Read", shared.ErrStoreUnavailable, "could not read "+key, err)
	}

	scratch := reflect.New(reflect.TypeOf(v).Elem())
	if err := json.Unmarshal(data, scratch.Interface()); err != nil {
		s.log.Warn("discarding corrupt document", logger.String("key", key), logger.Err(err))
		return false, nil
	}
	reflect.ValueOf(v).Elem().Set(scratch.Elem())
	return true, nil
}

// write marshals v and atomically replaces the document.
func (s *Store) write(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return shared.WrapError("localstore", "Write", shared.ErrWriteFailed, "could not encode "+key, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return shared.WrapError("localstore", "Write", shared.ErrWriteFailed, "could not create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return shared.WrapError("localstore", "Write", shared.ErrWriteFailed, "could not write "+key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return shared.WrapError("localstore", "Write", shared.ErrWriteFailed, "could not close temp file", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return shared.WrapError("localstore", "Write", shared.ErrWriteFailed, "could not replace "+key, err)
	}
	return nil
}

// remove deletes a document; a missing file is fine.
func (s *Store) remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return shared.WrapError("localstore", "Remove", shared.ErrWriteFailed, "could not remove "+key, err)
	}
	return nil
}
