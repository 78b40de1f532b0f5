package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// Credential holds the OAuth client and refresh token for one Google
// account connection. Token acquisition happens out of band; this file
// only carries the result.
type Credential struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

// AppConfig is the on-disk application configuration.
type AppConfig struct {
	// DataDir overrides the default SQLite data directory.
	DataDir string `toml:"data_dir,omitempty"`

	// Verbose enables debug logging by default.
	Verbose bool `toml:"verbose,omitempty"`

	// Credentials maps credential ids to Google OAuth credentials.
	Credentials map[string]Credential `toml:"credentials,omitempty"`

	// Secrets maps secret references (api_key_ref, token_ref) to values.
	Secrets map[string]string `toml:"secrets,omitempty"`
}

// Store loads and persists the application configuration file.
type Store struct {
	mu       sync.RWMutex
	filePath string
	cfg      AppConfig
}

// NewStore creates a TOML-based application config store.
// If configDir is empty, defaults to ~/.calsync/config.toml.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".calsync")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Load reads the configuration from disk.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var cfg AppConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	s.cfg = cfg
	return nil
}

// Save writes the configuration to disk with owner-only permissions,
// since it carries credentials.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := toml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.filePath
}

// DataDir returns the configured data directory, empty for the default.
func (s *Store) DataDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.DataDir
}

// Verbose returns the configured default verbosity.
func (s *Store) Verbose() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Verbose
}

// Secret resolves a secret reference to its value.
func (s *Store) Secret(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty secret reference", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.cfg.Secrets[ref]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: secret %q", domain.ErrNotFound, ref)
	}
	return value, nil
}

// CredentialFor returns the stored credential for an id.
func (s *Store) CredentialFor(id string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.cfg.Credentials[id]
	if !ok {
		return nil, fmt.Errorf("%w: credential %q", domain.ErrNotFound, id)
	}
	return &cred, nil
}

// SetCredential stores a credential under an id.
func (s *Store) SetCredential(id string, cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Credentials == nil {
		s.cfg.Credentials = make(map[string]Credential)
	}
	s.cfg.Credentials[id] = cred
}

// SetSecret stores a secret under a reference.
func (s *Store) SetSecret(ref, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Secrets == nil {
		s.cfg.Secrets = make(map[string]string)
	}
	s.cfg.Secrets[ref] = value
}
