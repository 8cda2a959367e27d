package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/usermanager/internal/auth"
)

// TokenCmd issues a session token signed with the server's session key. It is
// an operator tool for testing session authentication.
type TokenCmd struct {
	Subject        string               `help:"User id." required:""`
	Tenant         string               `help:"Tenant id." required:""`
	TTL            time.Duration        `help:"Token lifetime." default:"1h"`
	SigningKey     string               `help:"PEM encoded ECDSA signing key." env:"USERS_SESSION_SIGNING_KEY" xor:"key"`
	SigningKeyFile kong.FileContentFlag `help:"File holding the PEM encoded signing key." xor:"key" name:"signing-key-file"`
}

func (t *TokenCmd) Run(globals *Globals) error {
	key := t.SigningKey
	if len(t.SigningKeyFile) > 0 {
		key = string(t.SigningKeyFile)
	}
	if key == "" {
		return errors.New("a signing key is required; pass --signing-key or --signing-key-file")
	}

	token, err := auth.IssueSessionToken(key, t.Subject, t.Tenant, t.TTL)
	if err != nil {
		return err
	}

	fmt.Fprintln(globals.out(), token)
	return nil
}

// KeygenCmd writes a new session signing key pair. The server verifies with
// the public key; the token command signs with the private key.
type KeygenCmd struct {
	Dir string `arg:"" help:"Directory to write session.key and session.pub into." type:"path" default:"."`
}

func (k *KeygenCmd) Run(globals *Globals) error {
	privateKeyPEM, publicKeyPEM, err := auth.GenerateSessionKeyPair()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(k.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	keyPath := filepath.Join(k.Dir, "session.key")
	if _, err := os.Stat(keyPath); err == nil {
		return fmt.Errorf("%s already exists", keyPath)
	}
	if err := os.WriteFile(keyPath, []byte(privateKeyPEM), 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	pubPath := filepath.Join(k.Dir, "session.pub")
	if err := os.WriteFile(pubPath, []byte(publicKeyPEM), 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	fmt.Fprintf(globals.out(), "Wrote %s and %s\n", keyPath, pubPath)
	return nil
}
