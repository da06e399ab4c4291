package oauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNoCredential is returned by CredentialStorage.Load when nothing is stored.
var ErrNoCredential = errors.New("no stored credential")

// CredentialStorage persists the obfuscated credential blob between runs.
// Implementations hold at most one credential.
type CredentialStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, blob string) error
	Delete(ctx context.Context) error
}

// MemoryStorage keeps the credential for the life of the process.
type MemoryStorage struct {
	mu   sync.Mutex
	blob string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == "" {
		return "", ErrNoCredential
	}
	return m.blob, nil
}

func (m *MemoryStorage) Save(_ context.Context, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = blob
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = ""
	return nil
}

// credentialFileName is the file inside the storage directory.
const credentialFileName = "credentials"

// FileStorage writes the credential to a single file.
//
// SECURITY: the directory is created 0700 and the file written 0600.
type FileStorage struct {
	mu  sync.Mutex
	dir string
}

// NewFileStorage creates the storage directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("credential directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path() string {
	return filepath.Join(f.dir, credentialFileName)
}

func (f *FileStorage) Load(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// #nosec G304 -- path is built from the configured directory
	data, err := os.ReadFile(f.path())
	if os.IsNotExist(err) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}
	blob := strings.TrimSpace(string(data))
	if blob == "" {
		return "", ErrNoCredential
	}
	return blob, nil
}

// Save replaces the file atomically via a temp file and rename.
func (f *FileStorage) Save(_ context.Context, blob string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, credentialFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if _, err := tmp.WriteString(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, f.path()); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

func (f *FileStorage) Delete(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
