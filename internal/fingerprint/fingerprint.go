// Package fingerprint computes and persists content fingerprints for
// target input paths, the basis of the scheduler's skip-if-unchanged
// decision.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/conneroisu/runloop/internal/rlerror"
)

// Fingerprint is the hex-encoded digest of a target's resolved inputs.
type Fingerprint string

// AlwaysStale never equals a previously stored fingerprint, forcing a
// target to be rebuilt: used when hashing fails for a reason that does
// not warrant aborting the run.
const AlwaysStale Fingerprint = "ALWAYS_STALE"

// missingPathSentinel is folded into the hash in place of a path that
// does not exist, so a deleted input changes the fingerprint rather
// than being silently skipped.
const missingPathSentinel = "\x00runloop:missing-path\x00"

// Hasher computes fingerprints for a target's input paths.
type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash resolves every path in inputPaths (relative to dir) to the set
// of regular files it names — recursing into directories — and folds
// their contents into a single SHA-256 digest, walked in lexicographic
// order by relative path so the result is independent of filesystem
// iteration order. Symlinks found while walking a directory are not
// followed and do not contribute to the digest; only a declared input
// path that is itself a symlink is followed.
func (h *Hasher) Hash(dir string, inputPaths []string) Fingerprint {
	files, err := h.resolveFiles(dir, inputPaths)
	if err != nil {
		return AlwaysStale
	}

	sort.Strings(files)

	digest := sha256.New()
	visited := make(map[string]bool)
	for _, path := range files {
		if err := hashFile(digest, path, visited); err != nil {
			return AlwaysStale
		}
	}

	return Fingerprint(hex.EncodeToString(digest.Sum(nil)))
}

func (h *Hasher) resolveFiles(dir string, inputPaths []string) ([]string, error) {
	var files []string
	for _, rel := range inputPaths {
		abs := filepath.Join(dir, rel)
		info, err := os.Lstat(abs)
		if err != nil {
			// A declared input path that does not exist still has to
			// participate in the hash: fold it in as a missing entry
			// (via hashFile's own Lstat failure below) rather than
			// silently dropping it, so a target that declares a
			// missing path is distinguishable from one that never
			// declared it, and stays distinguishable from the moment
			// the path is created.
			files = append(files, abs)
			continue
		}

		if info.IsDir() {
			walkErr := filepath.Walk(abs, func(path string, walkInfo os.FileInfo, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if walkInfo.Mode().IsRegular() {
					files = append(files, path)
				}
				return nil
			})
			if walkErr != nil {
				return nil, rlerror.Wrap(rlerror.KindHashing, "", "walk "+abs, walkErr)
			}
			continue
		}

		files = append(files, abs)
	}
	return files, nil
}

// hashFile folds path (the full path, joined onto the target
// directory, so moving the project changes the digest) and its content
// into digest. Symlinks are followed once per resolved target path; a
// second visit to the same resolved path folds in a fixed marker
// instead of recursing again.
func hashFile(digest io.Writer, path string, visited map[string]bool) error {
	info, err := os.Lstat(path)
	if err != nil {
		io.WriteString(digest, path)
		io.WriteString(digest, missingPathSentinel)
		return nil
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			io.WriteString(digest, path)
			io.WriteString(digest, missingPathSentinel)
			return nil
		}
		if visited[target] {
			io.WriteString(digest, path)
			io.WriteString(digest, "\x00runloop:symlink-cycle\x00")
			return nil
		}
		visited[target] = true
		return hashFile(digest, target, visited)
	}

	f, err := os.Open(path)
	if err != nil {
		return rlerror.Wrap(rlerror.KindHashing, "", "open "+path, err)
	}
	defer f.Close()

	io.WriteString(digest, path)
	if _, err := io.Copy(digest, f); err != nil {
		return rlerror.Wrap(rlerror.KindHashing, "", "read "+path, err)
	}
	return nil
}
