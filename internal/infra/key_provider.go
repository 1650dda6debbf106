package infra

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const (
	keyFileName = ".key"
	keySize     = 32 // 256-bit AES key

	keychainService = "webmon"
	keychainAccount = "settings-store"
)

// NewKeyProvider picks the login keychain on macOS and a key file elsewhere.
func NewKeyProvider(paths Paths) domain.KeyProvider {
	if runtime.GOOS == "darwin" {
		return NewKeychainKeyProvider(&RealCommandRunner{})
	}
	return NewFileKeyProvider(paths.KeyPath)
}

// FileKeyProvider implements domain.KeyProvider using a local file
// with 0600 permissions.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider storing the key at keyPath.
func NewFileKeyProvider(keyPath string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: keyPath}
}

// GetKey reads the encryption key from the key file.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKey(string(encoded))
}

// StoreKey writes the encryption key to the key file with restricted permissions.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// KeychainKeyProvider implements domain.KeyProvider with the macOS login
// keychain through the security(1) tool.
type KeychainKeyProvider struct {
	runner CommandRunner
}

// NewKeychainKeyProvider creates a keychain-backed provider.
func NewKeychainKeyProvider(runner CommandRunner) *KeychainKeyProvider {
	return &KeychainKeyProvider{runner: runner}
}

// GetKey reads the key from the keychain.
func (p *KeychainKeyProvider) GetKey() ([]byte, error) {
	out, err := p.runner.Output(context.Background(), "security", "find-generic-password",
		"-s", keychainService, "-a", keychainAccount, "-w")
	if err != nil {
		return nil, fmt.Errorf("failed to read key from keychain: %w", err)
	}
	return decodeKey(string(out))
}

// StoreKey writes the key to the keychain, replacing any previous one.
func (p *KeychainKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	err := p.runner.Run(context.Background(), "security", "add-generic-password",
		"-U", "-s", keychainService, "-a", keychainAccount, "-w", encoded)
	if err != nil {
		return fmt.Errorf("failed to store key in keychain: %w", err)
	}
	return nil
}

// KeyExists checks whether the keychain item exists.
func (p *KeychainKeyProvider) KeyExists() bool {
	err := p.runner.Run(context.Background(), "security", "find-generic-password",
		"-s", keychainService, "-a", keychainAccount)
	return err == nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

// GenerateKey creates a new random 256-bit encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// EnsureKey generates and stores a key if one doesn't exist.
// Returns the key (existing or newly generated).
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Ensure both providers implement domain.KeyProvider.
var (
	_ domain.KeyProvider = (*FileKeyProvider)(nil)
	_ domain.KeyProvider = (*KeychainKeyProvider)(nil)
)
