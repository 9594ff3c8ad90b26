package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileFormat       = "student-portal/v1"
	sealedFileFormat = "student-portal/v1+sealed"
)

type fileDocument struct {
	Format  string            `json:"format"`
	Entries map[string]string `json:"entries,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Nonce   []byte            `json:"nonce,omitempty"`
	Box     []byte            `json:"box,omitempty"`
}

// FileKV keeps one profile's keys in a single JSON file, optionally sealed.
type FileKV struct {
	path   string
	sealer *Sealer

	mu      sync.Mutex
	loaded  bool
	corrupt bool
	entries map[string]string
}

// NewFileKV stores profile data at dir/<profile>.json.
func NewFileKV(dir, profile string, sealer *Sealer) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("storage: file dir is empty")
	}
	if profile == "" {
		return nil, errors.New("storage: profile is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &FileKV{
		path:   filepath.Join(dir, profile+".json"),
		sealer: sealer,
	}, nil
}

// Path returns the backing file.
func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) load() error {
	if f.loaded {
		if f.corrupt {
			return ErrCorrupt
		}
		return nil
	}
	f.loaded = true
	f.entries = make(map[string]string)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		f.loaded = false
		return fmt.Errorf("storage: read %s: %w", f.path, err)
	}

	entries, err := f.decode(data)
	if err != nil {
		f.corrupt = true
		return err
	}
	f.entries = entries
	return nil
}

func (f *FileKV) decode(data []byte) (map[string]string, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	switch doc.Format {
	case fileFormat:
		if doc.Entries == nil {
			return map[string]string{}, nil
		}
		return doc.Entries, nil
	case sealedFileFormat:
		if f.sealer == nil {
			return nil, fmt.Errorf("%w: sealed file but no passphrase configured", ErrCorrupt)
		}
		plain, err := f.sealer.Open(doc.Salt, doc.Nonce, doc.Box)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		entries := map[string]string{}
		if err := json.Unmarshal(plain, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrCorrupt, doc.Format)
	}
}

func (f *FileKV) flush() error {
	doc := fileDocument{Format: fileFormat, Entries: f.entries}
	if f.sealer != nil {
		plain, err := json.Marshal(f.entries)
		if err != nil {
			return err
		}
		salt, nonce, box, err := f.sealer.Seal(plain)
		if err != nil {
			return err
		}
		doc = fileDocument{Format: sealedFileFormat, Salt: salt, Nonce: nonce, Box: box}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: replace %s: %w", f.path, err)
	}
	return nil
}

func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return "", false, err
	}
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return err
	}
	f.entries[key] = value
	return f.flush()
}

// Delete removes keys. On a corrupt file it starts over with an empty document.
func (f *FileKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		f.corrupt = false
		f.entries = make(map[string]string)
	}
	for _, k := range keys {
		delete(f.entries, k)
	}
	return f.flush()
}
