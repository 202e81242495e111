package bank

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
)

// Bank is a persistent content-addressed store of merge-conflict
// resolutions. Each entry is one file named by the conflict key, holding the
// resolved content for that conflict. Entries are shared across PRs and runs.
type Bank struct {
	dir  string
	lock *flock.Flock
}

// metaSuffix marks the metadata files that group entry keys with a note
const metaSuffix = ".meta.yaml"

// Open opens the bank at dir, creating the directory if needed
func Open(dir string) (*Bank, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create resolution bank at %s: %w", dir, err)
	}
	return &Bank{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Dir returns the bank directory
func (b *Bank) Dir() string {
	return b.dir
}

// Key derives the bank key for a three-way conflict. Each section is
// length-framed before hashing so distinct splits cannot collide.
func Key(base, ours, theirs []byte) string {
	h := sha256.New()
	for _, section := range [][]byte{base, ours, theirs} {
		var frame [8]byte
		binary.BigEndian.PutUint64(frame[:], uint64(len(section)))
		h.Write(frame[:])
		h.Write(section)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the resolved content for a key, if recorded
func (b *Bank) Lookup(key string) ([]byte, bool, error) {
	content, err := os.ReadFile(filepath.Join(b.dir, key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read resolution %s: %w", key, err)
	}
	return content, true, nil
}

// Record stores the resolved content for a key, overwriting any previous
// resolution
func (b *Bank) Record(key string, resolved []byte) error {
	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock resolution bank: %w", err)
	}
	defer b.lock.Unlock()

	if err := os.WriteFile(filepath.Join(b.dir, key), resolved, 0644); err != nil {
		return fmt.Errorf("failed to record resolution %s: %w", key, err)
	}
	return nil
}

// Keys returns all entry keys in the bank, sorted
func (b *Bank) Keys() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolution bank: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Purge deletes every entry whose key is not in used, then drops metadata
// files whose every referenced key was purged. Returns the purged keys.
func (b *Bank) Purge(used map[string]bool) ([]string, error) {
	if err := b.lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock resolution bank: %w", err)
	}
	defer b.lock.Unlock()

	keys, err := b.Keys()
	if err != nil {
		return nil, err
	}

	var purged []string
	for _, key := range keys {
		if used[key] {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, key)); err != nil {
			return nil, fmt.Errorf("failed to purge resolution %s: %w", key, err)
		}
		purged = append(purged, key)
	}

	if err := b.pruneMetadata(); err != nil {
		return nil, err
	}
	return purged, nil
}
