package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"connectrpc.com/connect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// KeysCmd manages API keys.
type KeysCmd struct {
	List   KeysListCmd   `cmd:"" help:"List API keys visible to the caller." default:"1"`
	Create KeysCreateCmd `cmd:"" help:"Create an API key. The secret is printed once."`
	Update KeysUpdateCmd `cmd:"" help:"Rename a key or change its rate limit exemption."`
	Delete KeysDeleteCmd `cmd:"" help:"Revoke an API key."`
}

type KeysListCmd struct {
	Org     string `help:"Only keys of this organization." name:"org"`
	Project string `help:"Only keys of this project."`
}

func (c *KeysListCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.ListAPIKeys(ctx, connect.NewRequest(&usersv1.ListAPIKeysRequest{
		OrganizationId: c.Org,
		ProjectId:      c.Project,
	}))
	if err != nil {
		return fmt.Errorf("failed to list api keys: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tSECRET\tORGANIZATION\tPROJECT\tOWNER\tSA\tCREATED")
		for _, k := range resp.Msg.Data {
			org, project, owner := "-", "-", "-"
			if k.Organization != nil {
				org = k.Organization.Id
			}
			if k.Project != nil {
				project = k.Project.Id
			}
			if k.User != nil {
				owner = k.User.Id
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n", k.Id, k.Name, k.Secret, org, project, owner, k.IsServiceAccount, formatTime(k.CreatedAt))
		}
	})
}

type KeysCreateCmd struct {
	Name             string `arg:"" help:"Key name, unique within the tenant."`
	Org              string `help:"Organization id (default: the credential's)." name:"org"`
	Project          string `help:"Scope the key to a project."`
	OrgRole          string `help:"Organization role; inherit uses the caller's." enum:"inherit,owner,reader" default:"inherit"`
	ProjectRole      string `help:"Project role; inherit uses the caller's." enum:"inherit,owner,member" default:"inherit"`
	ServiceAccount   bool   `help:"Bind the key to a new service account user." name:"service-account"`
	ExcludeRateLimit bool   `help:"Exempt the key from rate limiting." name:"exclude-rate-limit"`
}

func (c *KeysCreateCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}

	req := &usersv1.CreateAPIKeyRequest{
		Name:                     c.Name,
		OrganizationId:           orgID,
		ProjectId:                c.Project,
		OrganizationRole:         organizationRole(c.OrgRole),
		ProjectRole:              projectRole(c.ProjectRole),
		IsServiceAccount:         c.ServiceAccount,
		ExcludedFromRateLimiting: c.ExcludeRateLimit,
	}

	var resp *connect.Response[usersv1.APIKey]
	if c.Project != "" {
		resp, err = sess.Users.CreateProjectAPIKey(ctx, connect.NewRequest(req))
	} else {
		resp, err = sess.Users.CreateAPIKey(ctx, connect.NewRequest(req))
	}
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Created API key %s (%s)\n", resp.Msg.Name, resp.Msg.Id)
		fmt.Fprintf(w, "Secret:\t%s\n", resp.Msg.Secret)
		fmt.Fprintln(w, "Store the secret now, it cannot be retrieved again.")
	})
}

type KeysUpdateCmd struct {
	ID               string  `arg:"" help:"Key id."`
	Name             *string `help:"New name."`
	ExcludeRateLimit bool    `help:"Exempt the key from rate limiting." name:"exclude-rate-limit" xor:"rate-limit"`
	IncludeRateLimit bool    `help:"Subject the key to rate limiting again." name:"include-rate-limit" xor:"rate-limit"`
}

func (c *KeysUpdateCmd) request() (*usersv1.UpdateAPIKeyRequest, error) {
	key := &usersv1.APIKey{Id: c.ID}
	mask := &fieldmaskpb.FieldMask{}
	if c.Name != nil {
		key.Name = *c.Name
		mask.Paths = append(mask.Paths, "name")
	}
	if c.ExcludeRateLimit || c.IncludeRateLimit {
		key.ExcludedFromRateLimiting = c.ExcludeRateLimit
		mask.Paths = append(mask.Paths, "excluded_from_rate_limiting")
	}
	if len(mask.Paths) == 0 {
		return nil, errors.New("nothing to update; pass --name, --exclude-rate-limit or --include-rate-limit")
	}
	return &usersv1.UpdateAPIKeyRequest{ApiKey: key, UpdateMask: mask}, nil
}

func (c *KeysUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	req, err := c.request()
	if err != nil {
		return err
	}
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.UpdateAPIKey(ctx, connect.NewRequest(req))
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Updated API key %s (%s)\n", resp.Msg.Name, resp.Msg.Id)
	})
}

type KeysDeleteCmd struct {
	ID      string `arg:"" help:"Key id."`
	Org     string `help:"Organization id the key belongs to." name:"org"`
	Project string `help:"Project id the key belongs to."`
}

func (c *KeysDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	req := &usersv1.DeleteAPIKeyRequest{Id: c.ID, OrganizationId: c.Org, ProjectId: c.Project}
	var resp *connect.Response[usersv1.DeleteResponse]
	if c.Project != "" {
		resp, err = sess.Users.DeleteProjectAPIKey(ctx, connect.NewRequest(req))
	} else {
		resp, err = sess.Users.DeleteAPIKey(ctx, connect.NewRequest(req))
	}
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return printDeleted(globals, resp.Msg)
}
