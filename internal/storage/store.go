package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// assetVersion is written into every envelope saved by a FileStore.
const assetVersion = 1

// FileStore keeps one JSON file per record under path and caches every
// record in memory. Reads are served from the cache.
type FileStore[T ValidatingSpec] struct {
	path    string
	records map[string]T

	mu sync.RWMutex
}

func NewFileStore[T ValidatingSpec](path string) (*FileStore[T], error) {
	records, err := readAssets[T](path)
	if err != nil {
		return nil, err
	}

	return &FileStore[T]{
		path:    path,
		records: records,
	}, nil
}

// readAssets walks root and decodes every .json envelope beneath it.
func readAssets[T ValidatingSpec](root string) (map[string]T, error) {
	records := map[string]T{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		asset, err := decodeAsset[T](path)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
		}
		if err := asset.Validate(); err != nil {
			return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
		}
		if _, ok := records[asset.Id()]; ok {
			return fmt.Errorf("duplicate key detected: %s", asset.Id())
		}

		records[asset.Id()] = asset.Spec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func decodeAsset[T ValidatingSpec](path string) (*Asset[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	asset := &Asset[T]{}
	if err := json.Unmarshal(data, asset); err != nil {
		return nil, fmt.Errorf("unmarshalling asset: %w", err)
	}
	return asset, nil
}

// Save caches o under id and writes it to disk.
func (s *FileStore[T]) Save(id string, o T) error {
	if !ValidIdentifier(id) {
		return fmt.Errorf("invalid id %q", id)
	}

	data, err := json.Marshal(&Asset[T]{
		Version:    assetVersion,
		Identifier: id,
		Spec:       o,
	})
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = o
	return atomicWrite(s.filePath(id), data, 0644)
}

// atomicWrite writes data beside path and renames it into place, so a
// crash never leaves a truncated record.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("removing temp file after failed rename", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Get returns the record stored under id, or the zero value.
func (s *FileStore[T]) Get(id string) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

func (s *FileStore[T]) GetAll() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.records)
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *FileStore[T]) Delete(id string) error {
	if !ValidIdentifier(id) {
		return fmt.Errorf("invalid id %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return removeFile(s.filePath(id))
}

// DeleteAll removes every record.
func (s *FileStore[T]) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.records {
		if err := removeFile(s.filePath(id)); err != nil {
			return err
		}
		delete(s.records, id)
	}
	return nil
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileStore[T]) filePath(id string) string {
	return filepath.Join(s.path, id+".json")
}
