package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/ids"
)

// Sentinel errors
var (
	// ErrCredentialNotFound is returned when a credential doesn't exist.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialExists is returned when trying to create a duplicate.
	ErrCredentialExists = errors.New("credential already exists")

	// ErrNoDefaultCredential is returned when no default is set.
	ErrNoDefaultCredential = errors.New("no default credential set")

	// ErrInvalidAPIKey is returned when the key is not an API key secret.
	ErrInvalidAPIKey = errors.New("invalid api key")
)

// Credential is an API key for one server, plus the organization and project
// commands default to.
type Credential struct {
	Name           string    `json:"name"`
	ServerURL      string    `json:"server_url"`
	APIKey         string    `json:"api_key"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ProjectID      string    `json:"project_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Hint returns the obfuscated API key for display.
func (c *Credential) Hint() string {
	return ids.ObfuscateSecret(c.APIKey)
}

// Config represents the credentials configuration file.
type Config struct {
	Version           int                   `json:"version"`
	DefaultCredential string                `json:"default_credential,omitempty"`
	Credentials       map[string]Credential `json:"credentials"`
}

// Store manages credential storage on the local filesystem. The file holds
// secrets and is only readable by the owner.
type Store struct {
	baseDir string
}

// NewStore creates a new credential store.
// If baseDir is empty, uses ~/.usersctl/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".usersctl")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	store := &Store{baseDir: baseDir}

	// Initialize config if it doesn't exist
	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential store initialized")

	return store, nil
}

// Add stores a new credential. The first credential becomes the default.
func (s *Store) Add(name, serverURL, apiKey string) (*Credential, error) {
	if name == "" {
		return nil, errors.New("credential name is required")
	}
	if !ids.IsSecret(apiKey) {
		return nil, ErrInvalidAPIKey
	}
	if _, err := s.Get(name); err == nil {
		return nil, ErrCredentialExists
	}

	now := time.Now().UTC()
	cred := Credential{
		Name:      name,
		ServerURL: strings.TrimRight(serverURL, "/"),
		APIKey:    apiKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.addCredential(cred); err != nil {
		return nil, err
	}

	log.Info().
		Str("name", name).
		Str("server", cred.ServerURL).
		Msg("credential added")

	return &cred, nil
}

// Get retrieves a credential by name.
func (s *Store) Get(name string) (*Credential, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	cred, ok := cfg.Credentials[name]
	if !ok {
		return nil, ErrCredentialNotFound
	}

	return &cred, nil
}

// GetDefault retrieves the default credential.
// Returns ErrNoDefaultCredential if none is set.
func (s *Store) GetDefault() (*Credential, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.DefaultCredential == "" {
		return nil, ErrNoDefaultCredential
	}

	return s.Get(cfg.DefaultCredential)
}

// Resolve returns the named credential, or the default when name is empty.
func (s *Store) Resolve(name string) (*Credential, error) {
	if name == "" {
		return s.GetDefault()
	}
	return s.Get(name)
}

// List returns all stored credentials ordered by name.
func (s *Store) List() ([]Credential, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	credentials := make([]Credential, 0, len(cfg.Credentials))
	for _, cred := range cfg.Credentials {
		credentials = append(credentials, cred)
	}
	sort.Slice(credentials, func(i, j int) bool { return credentials[i].Name < credentials[j].Name })

	return credentials, nil
}

// SetScope updates the organization and project a credential defaults to.
func (s *Store) SetScope(name, organizationID, projectID string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	cred, ok := cfg.Credentials[name]
	if !ok {
		return ErrCredentialNotFound
	}

	cred.OrganizationID = organizationID
	cred.ProjectID = projectID
	cred.UpdatedAt = time.Now().UTC()

	cfg.Credentials[name] = cred

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().
		Str("name", name).
		Str("organization_id", organizationID).
		Str("project_id", projectID).
		Msg("credential scope updated")

	return nil
}

// Delete removes a credential.
func (s *Store) Delete(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Credentials[name]; !ok {
		return ErrCredentialNotFound
	}

	delete(cfg.Credentials, name)

	// Clear default if this was the default credential
	if cfg.DefaultCredential == name {
		cfg.DefaultCredential = ""
	}

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("credential deleted")

	return nil
}

// SetDefault sets the default credential.
func (s *Store) SetDefault(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Credentials[name]; !ok {
		return ErrCredentialNotFound
	}

	cfg.DefaultCredential = name

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("default credential set")

	return nil
}

// ensureConfig creates an empty config if it doesn't exist.
func (s *Store) ensureConfig() error {
	configPath := filepath.Join(s.baseDir, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	cfg := &Config{
		Version:     1,
		Credentials: make(map[string]Credential),
	}

	return s.saveConfig(cfg)
}

// loadConfig reads the config file.
func (s *Store) loadConfig() (*Config, error) {
	configPath := filepath.Join(s.baseDir, "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Ensure credentials map is initialized
	if cfg.Credentials == nil {
		cfg.Credentials = make(map[string]Credential)
	}

	return &cfg, nil
}

// saveConfig writes the config file atomically.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(s.baseDir, "config.json")
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// addCredential adds a new credential to the config.
func (s *Store) addCredential(cred Credential) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	cfg.Credentials[cred.Name] = cred

	// Set as default if this is the first credential
	if len(cfg.Credentials) == 1 {
		cfg.DefaultCredential = cred.Name
	}

	return s.saveConfig(cfg)
}
