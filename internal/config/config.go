// Package config loads the seed data applied when the server starts.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wolfeidau/usermanager/internal/ids"
	"gopkg.in/yaml.v3"
)

// Config describes the organization, project and API keys created at start up.
// Every section is optional; an empty file seeds nothing.
type Config struct {
	DefaultOrganization *DefaultOrganization `yaml:"defaultOrganization"`
	DefaultProject      *DefaultProject      `yaml:"defaultProject"`
	DefaultAPIKeys      []DefaultAPIKey      `yaml:"defaultApiKeys"`
}

// DefaultOrganization is created once per tenant. Every listed user is made an owner.
type DefaultOrganization struct {
	Title    string   `yaml:"title"`
	TenantID string   `yaml:"tenantId"`
	UserIDs  []string `yaml:"userIds"`
}

// DefaultProject is created in the default organization.
type DefaultProject struct {
	Title               string `yaml:"title"`
	KubernetesNamespace string `yaml:"kubernetesNamespace"`
}

// DefaultAPIKey is issued to UserID in the default organization and, when one is
// configured, the default project. The secret may be given inline or through an
// environment variable so deployments can share it ahead of time.
type DefaultAPIKey struct {
	Name      string `yaml:"name"`
	UserID    string `yaml:"userId"`
	Secret    string `yaml:"secret"`
	SecretEnv string `yaml:"secretEnv"`
}

// Load reads and validates the file at path. Secrets referenced through
// secretEnv are resolved from the environment.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(b, os.Getenv)
}

// Parse decodes YAML from b. Unknown fields are rejected.
func Parse(b []byte, getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	for i := range cfg.DefaultAPIKeys {
		k := &cfg.DefaultAPIKeys[i]
		if k.SecretEnv != "" && k.Secret == "" {
			k.Secret = getenv(k.SecretEnv)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the seed data is complete and self consistent.
func (c *Config) Validate() error {
	if c.DefaultOrganization == nil {
		if c.DefaultProject != nil {
			return errors.New("defaultProject requires defaultOrganization")
		}
		if len(c.DefaultAPIKeys) > 0 {
			return errors.New("defaultApiKeys requires defaultOrganization")
		}
		return nil
	}

	if err := c.DefaultOrganization.validate(); err != nil {
		return fmt.Errorf("defaultOrganization: %w", err)
	}
	if c.DefaultProject != nil {
		if err := c.DefaultProject.validate(); err != nil {
			return fmt.Errorf("defaultProject: %w", err)
		}
	}

	names := make(map[string]bool)
	for i, k := range c.DefaultAPIKeys {
		if err := k.validate(); err != nil {
			return fmt.Errorf("defaultApiKeys[%d]: %w", i, err)
		}
		if names[k.Name] {
			return fmt.Errorf("defaultApiKeys[%d]: duplicate name %q", i, k.Name)
		}
		names[k.Name] = true
	}
	return nil
}

func (c *DefaultOrganization) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title must be set")
	}
	if c.TenantID == "" {
		return errors.New("tenantId must be set")
	}
	if len(c.UserIDs) == 0 {
		return errors.New("userIds must be set")
	}
	for _, id := range c.UserIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("userIds must not contain empty ids")
		}
	}
	return nil
}

func (c *DefaultProject) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title must be set")
	}
	if c.KubernetesNamespace == "" {
		return errors.New("kubernetesNamespace must be set")
	}
	return nil
}

func (k DefaultAPIKey) validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return errors.New("name must be set")
	}
	if strings.TrimSpace(k.UserID) == "" {
		return errors.New("userId must be set")
	}
	if k.SecretEnv != "" && k.Secret == "" {
		return fmt.Errorf("environment variable %s is empty", k.SecretEnv)
	}
	if k.Secret != "" && !ids.IsSecret(k.Secret) {
		return fmt.Errorf("secret must start with %q", ids.SecretPrefix)
	}
	return nil
}
