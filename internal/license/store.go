package license

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/praxemr/licensing/internal/model"
)

// Store persists the single encrypted entitlement record for this device at
// <dataDir>/license/license.dat.
type Store struct {
	path  string
	codec *Codec
	log   *zap.Logger
}

// NewStore constructs a Store rooted at the user data directory.
func NewStore(dataDir string, codec *Codec, log *zap.Logger) *Store {
	return &Store{
		path:  filepath.Join(dataDir, "license", "license.dat"),
		codec: codec,
		log:   log,
	}
}

// Load returns the cached entitlement, or nil when absent. Any read or
// decode failure is treated as absent: a corrupted cache must never brick
// the client, the user can simply log in again.
func (s *Store) Load() *model.CachedEntitlement {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("entitlement read failed", zap.Error(err))
		}
		return nil
	}
	rec, err := s.codec.Decode(blob)
	if err != nil {
		s.log.Debug("entitlement decode failed", zap.Error(err))
		return nil
	}
	return &rec
}

// Save encodes and atomically replaces the persisted entitlement. The write
// goes to a temp file first so a crash mid-write cannot leave a partial
// blob behind.
func (s *Store) Save(rec model.CachedEntitlement) error {
	blob, err := s.codec.Encode(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Delete removes the persisted entitlement. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
