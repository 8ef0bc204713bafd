package creds

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/pebble"
)

// Errors
var (
	ErrBadKeyfile = errors.New("unusable key file")
	ErrMissingRow = errors.New("credential row not found")
	ErrDecrypt    = errors.New("credential decryption failed")
)

// Database rows holding the sealed credential pair.
const (
	rowAPIKey    = "credentials/api_key"
	rowAPISecret = "credentials/api_secret"
)

// Keys is the ordered credential pair for the upstream feed.
type Keys struct {
	APIKey    string
	APISecret string
}

// Provider yields feed credentials. The concrete Store reads them from an
// encrypted database; tests substitute a static implementation.
type Provider interface {
	Credentials(ctx context.Context) (Keys, error)
}

// Store reads sealed credentials from a pebble database.
type Store struct {
	db  *pebble.DB
	key []byte
}

// Open opens the credential database read-only and loads the sealing key
// from the key file.
func Open(dbPath, keyfilePath string) (*Store, error) {
	key, err := loadKey(keyfilePath)
	if err != nil {
		return nil, err
	}

	db, err := pebble.Open(dbPath, &pebble.Options{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	return &Store{db: db, key: key}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Credentials reads and unseals the credential pair.
func (s *Store) Credentials(_ context.Context) (Keys, error) {
	apiKey, err := s.readRow(rowAPIKey)
	if err != nil {
		return Keys{}, err
	}
	secret, err := s.readRow(rowAPISecret)
	if err != nil {
		return Keys{}, err
	}

	return Keys{APIKey: apiKey, APISecret: secret}, nil
}

// readRow fetches one sealed row and decrypts it.
func (s *Store) readRow(row string) (string, error) {
	val, closer, err := s.db.Get([]byte(row))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrMissingRow, row)
		}
		return "", fmt.Errorf("read %s: %w", row, err)
	}
	defer closer.Close()

	plaintext, err := unseal(s.key, val)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecrypt, row, err)
	}
	return string(plaintext), nil
}

// Provision writes a sealed credential pair into the database at dbPath,
// creating it if needed. Used by provisioning tooling and tests.
func Provision(dbPath, keyfilePath string, keys Keys) error {
	key, err := loadKey(keyfilePath)
	if err != nil {
		return err
	}

	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("open credential database: %w", err)
	}
	defer db.Close()

	rows := map[string]string{
		rowAPIKey:    keys.APIKey,
		rowAPISecret: keys.APISecret,
	}
	for row, plaintext := range rows {
		sealed, err := seal(key, []byte(plaintext))
		if err != nil {
			return fmt.Errorf("seal %s: %w", row, err)
		}
		if err := db.Set([]byte(row), sealed, pebble.Sync); err != nil {
			return fmt.Errorf("write %s: %w", row, err)
		}
	}

	return nil
}

// loadKey reads a hex-encoded 32-byte AES key from the key file.
func loadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyfile, err)
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not hex encoded", ErrBadKeyfile)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: need 32 key bytes, got %d", ErrBadKeyfile, len(key))
	}
	return key, nil
}

// seal encrypts plaintext with AES-256-GCM, nonce prefixed.
func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// unseal reverses seal.
func unseal(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed value too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
