package fingerprint

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/runloop/internal/rlerror"
)

// Store persists one fingerprint per target under a state directory,
// written atomically (temp file + rename) so a crash mid-write never
// leaves a corrupt entry that could be read back as a false match.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rlerror.Wrap(rlerror.KindFingerprintStore, "", "create state directory "+dir, err)
	}
	return &Store{dir: dir}, nil
}

// Load returns the previously stored fingerprint for target, and
// false if none is on record (first build, or cleared).
func (s *Store) Load(target string) (Fingerprint, bool) {
	data, err := os.ReadFile(s.path(target))
	if err != nil {
		return "", false
	}
	return Fingerprint(strings.TrimSpace(string(data))), true
}

// Save persists fp as the fingerprint on record for target.
func (s *Store) Save(target string, fp Fingerprint) error {
	path := s.path(target)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, []byte(fp), 0o644); err != nil {
		return rlerror.Wrap(rlerror.KindFingerprintStore, target, "write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rlerror.Wrap(rlerror.KindFingerprintStore, target, "rename "+tmp+" to "+path, err)
	}
	return nil
}

// Clear removes the recorded fingerprint for target, if any.
func (s *Store) Clear(target string) error {
	err := os.Remove(s.path(target))
	if err != nil && !os.IsNotExist(err) {
		return rlerror.Wrap(rlerror.KindFingerprintStore, target, "remove "+s.path(target), err)
	}
	return nil
}

// ClearAll removes every recorded fingerprint in the store.
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rlerror.Wrap(rlerror.KindFingerprintStore, "", "read state directory "+s.dir, err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return rlerror.Wrap(rlerror.KindFingerprintStore, "", "remove "+e.Name(), err)
		}
	}
	return nil
}

// path returns a filesystem-safe path for target's fingerprint file.
// Target names may contain characters not safe in all filenames (e.g.
// "/" from namespaced config), so the name is hex-encoded rather than
// used verbatim.
func (s *Store) path(target string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(target))+".fp")
}
