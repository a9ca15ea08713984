package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileStore persists entries as one JSON object on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Describe() string { return f.path }

// Load reads the file. A missing file is an empty store.
func (f *FileStore) Load(context.Context) (map[string]json.RawMessage, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	defer file.Close()
	entries, err := DecodeFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return entries, nil
}

// Save merges entries into the file content and replaces the file
// atomically.
func (f *FileStore) Save(ctx context.Context, entries map[string]json.RawMessage) error {
	current, err := f.Load(ctx)
	if err != nil {
		return err
	}
	for k, v := range entries {
		current[k] = v
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := EncodeToWriter(current, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// EncodeToWriter writes entries as an indented JSON object with sorted keys,
// so the file stays diffable and editable by hand.
func EncodeToWriter(entries map[string]json.RawMessage, w io.Writer) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range keys {
		name, _ := json.Marshal(k)
		var value bytes.Buffer
		if err := json.Compact(&value, entries[k]); err != nil {
			return fmt.Errorf("failed to encode entry %q: %w", k, err)
		}
		buf.WriteString("  ")
		buf.Write(name)
		buf.WriteString(": ")
		buf.Write(value.Bytes())
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// DecodeFromReader reads a JSON object of entries. Anything that is not a
// JSON object, including an empty document, is ErrCorrupt.
func DecodeFromReader(r io.Reader) (map[string]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrCorrupt)
	}
	return entries, nil
}
