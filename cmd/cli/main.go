package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/cmd/cli/internal/commands"
	"github.com/wolfeidau/usermanager/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Globals commands.Globals `embed:""`

		Login       commands.LoginCmd       `cmd:"" help:"Verify an API key and store it as a credential."`
		Credentials commands.CredentialsCmd `cmd:"" help:"Manage stored credentials."`
		Whoami      commands.WhoamiCmd      `cmd:"" help:"Show the authenticated user."`
		Orgs        commands.OrgsCmd        `cmd:"" help:"Manage organizations."`
		Projects    commands.ProjectsCmd    `cmd:"" help:"Manage projects."`
		Keys        commands.KeysCmd        `cmd:"" help:"Manage API keys."`
		Users       commands.UsersCmd       `cmd:"" help:"Inspect users."`
		Internal    commands.InternalCmd    `cmd:"" help:"Operator commands against the internal listener."`
		Token       commands.TokenCmd       `cmd:"" help:"Issue a session token."`
		Keygen      commands.KeygenCmd      `cmd:"" help:"Generate a session signing key pair."`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("usersctl"),
		kong.Description("Manage organizations, projects and API keys."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Globals.Debug)

	cli.Globals.Version = version
	err := cmd.Run(&cli.Globals)
	cmd.FatalIfErrorf(err)
}
