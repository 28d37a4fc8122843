//go:build property

package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFingerprintDeterministic validates the "Fingerprint determinism"
// property: for identical content under a target's input paths, the
// computed fingerprint is equal across repeated hashing regardless of
// what the files contain.
func TestFingerprintDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("hashing the same file contents twice yields the same fingerprint",
		prop.ForAll(
			func(contents []string) bool {
				dir := t.TempDir()
				names := make([]string, len(contents))
				for i, c := range contents {
					name := fileNameFor(i)
					if err := os.WriteFile(filepath.Join(dir, name), []byte(c), 0o644); err != nil {
						return false
					}
					names[i] = name
				}

				h := NewHasher()
				first := h.Hash(dir, names)
				second := h.Hash(dir, names)
				return first == second && first != AlwaysStale
			},
			gen.SliceOfN(5, gen.Identifier()),
		))

	properties.Property("changing any one file's content changes the fingerprint",
		prop.ForAll(
			func(a, b string) bool {
				if a == b {
					return true
				}
				dir := t.TempDir()
				path := filepath.Join(dir, "f")
				if err := os.WriteFile(path, []byte(a), 0o644); err != nil {
					return false
				}
				h := NewHasher()
				before := h.Hash(dir, []string{"f"})

				if err := os.WriteFile(path, []byte(b), 0o644); err != nil {
					return false
				}
				after := h.Hash(dir, []string{"f"})
				return before != after
			},
			gen.Identifier(),
			gen.Identifier(),
		))

	properties.TestingRun(t)
}

func fileNameFor(i int) string {
	return string(rune('a' + i))
}
