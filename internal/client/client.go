package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/wolfeidau/usermanager/api/usersv1/usersv1connect"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool

	// LegacyInternal targets the internal service under its pre-rename name.
	LegacyInternal bool
}

// Clients holds the rpc clients
type Clients struct {
	Users    usersv1connect.UsersServiceClient
	Internal usersv1connect.UsersInternalServiceClient
}

// NewClients creates clients for the public and internal users services. The
// internal client is only useful against the internal listener.
func NewClients(config Config, opts ...connect.ClientOption) (*Clients, error) {
	if config.ServerURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if !strings.HasPrefix(config.ServerURL, "http://") && !strings.HasPrefix(config.ServerURL, "https://") {
		return nil, fmt.Errorf("server url %q must start with http:// or https://", config.ServerURL)
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	internalName := usersv1connect.UsersInternalServiceName
	if config.LegacyInternal {
		internalName = usersv1connect.LegacyUsersInternalServiceName
	}

	return &Clients{
		Users:    usersv1connect.NewUsersServiceClient(httpClient, config.ServerURL, opts...),
		Internal: usersv1connect.NewUsersInternalServiceClient(httpClient, config.ServerURL, internalName, opts...),
	}, nil
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}
