package secret

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// ErrDecrypt means the secrets file could not be opened with the passphrase.
var ErrDecrypt = errors.New("secret: cannot decrypt store (wrong passphrase or corrupt file)")

const (
	fileVersion = 1
	saltSize    = 16
	scryptN     = 1 << 15
	scryptR     = 8
	scryptP     = 1
)

// envelope is the on-disk form. Data is the sealed JSON of the secret map.
type envelope struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

// FileStore is a Store persisted as one XChaCha20-Poly1305 sealed file. The key
// is derived from a passphrase with scrypt; every write re-seals the whole map
// with a fresh nonce.
type FileStore struct {
	path string

	mu   sync.Mutex
	salt []byte
	key  []byte
	m    map[string]string
}

// OpenFile opens or creates the encrypted store at path.
func OpenFile(path, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, errors.New("secret: empty passphrase")
	}
	s := &FileStore{path: path, m: make(map[string]string)}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.salt = make([]byte, saltSize)
		if _, err := rand.Read(s.salt); err != nil {
			return nil, fmt.Errorf("secret: salt: %w", err)
		}
		if s.key, err = deriveKey(passphrase, s.salt); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("secret: read %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil || env.Version != fileVersion {
		return nil, ErrDecrypt
	}
	key, err := deriveKey(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrDecrypt
	}
	plain, err := aead.Open(nil, env.Nonce, env.Data, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	if err := json.Unmarshal(plain, &s.m); err != nil {
		return nil, ErrDecrypt
	}
	s.salt, s.key = env.Salt, key
	return s, nil
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("secret: derive key: %w", err)
	}
	return key, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *FileStore) Put(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.m[key]
	s.m[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.m[key] = prev
		} else {
			delete(s.m, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.m[key]
	if !had {
		return nil
	}
	delete(s.m, key)
	if err := s.flushLocked(); err != nil {
		s.m[key] = prev
		return err
	}
	return nil
}

// flushLocked seals the map and atomically replaces the file.
func (s *FileStore) flushLocked() error {
	plain, err := json.Marshal(s.m)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("secret: nonce: %w", err)
	}
	b, err := json.Marshal(envelope{
		Version: fileVersion,
		Salt:    s.salt,
		Nonce:   nonce,
		Data:    aead.Seal(nil, nonce, plain, nil),
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("secret: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".secrets-*")
	if err != nil {
		return fmt.Errorf("secret: temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("secret: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
