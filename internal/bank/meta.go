package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata groups a set of entry keys under a human note, typically one
// group per manually-resolved conflict report
type Metadata struct {
	Note string   `yaml:"note"`
	Keys []string `yaml:"keys"`
}

// WriteMetadata stores a metadata file named after the group
func (b *Bank) WriteMetadata(name string, meta Metadata) error {
	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock resolution bank: %w", err)
	}
	defer b.lock.Unlock()

	content, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata %s: %w", name, err)
	}
	path := filepath.Join(b.dir, name+metaSuffix)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", name, err)
	}
	return nil
}

// ReadMetadata loads all metadata files, keyed by group name
func (b *Bank) ReadMetadata() (map[string]Metadata, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolution bank: %w", err)
	}

	metas := make(map[string]Metadata)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, metaSuffix) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(b.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata %s: %w", name, err)
		}
		var meta Metadata
		if err := yaml.Unmarshal(content, &meta); err != nil {
			return nil, fmt.Errorf("failed to parse metadata %s: %w", name, err)
		}
		metas[strings.TrimSuffix(name, metaSuffix)] = meta
	}
	return metas, nil
}

// pruneMetadata removes metadata files whose every referenced key is gone.
// Caller holds the bank lock.
func (b *Bank) pruneMetadata() error {
	keys, err := b.Keys()
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(keys))
	for _, key := range keys {
		present[key] = true
	}

	metas, err := b.ReadMetadata()
	if err != nil {
		return err
	}
	for name, meta := range metas {
		alive := false
		for _, key := range meta.Keys {
			if present[key] {
				alive = true
				break
			}
		}
		if alive {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, name+metaSuffix)); err != nil {
			return fmt.Errorf("failed to prune metadata %s: %w", name, err)
		}
	}
	return nil
}
