package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/client"
)

// InternalCmd talks to the unauthenticated internal listener. It is meant for
// operators and cluster components, never for end users.
type InternalCmd struct {
	CreateUser    InternalCreateUserCmd    `cmd:"" name:"create-user" help:"Create a user in a tenant, provisioning its default organization."`
	Organizations InternalOrganizationsCmd `cmd:"" help:"List organizations across tenants."`
	Projects      InternalProjectsCmd      `cmd:"" help:"List projects across tenants."`
	Keys          InternalKeysCmd          `cmd:"" help:"List API keys across tenants."`
}

// InternalTarget selects the internal listener.
type InternalTarget struct {
	InternalServer string `help:"Internal listener URL." default:"http://localhost:8081" env:"USERSCTL_INTERNAL_SERVER" name:"internal-server"`
	Legacy         bool   `help:"Use the pre-rename internal service name."`
}

func (i InternalTarget) clients(globals *Globals) (*client.Clients, error) {
	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create interceptor: %w", err)
	}
	return client.NewClients(client.Config{
		ServerURL:      i.InternalServer,
		Timeout:        30 * time.Second,
		Debug:          globals.Debug,
		LegacyInternal: i.Legacy,
	}, connect.WithInterceptors(otelInterceptor))
}

type InternalCreateUserCmd struct {
	Target    InternalTarget `embed:""`
	Tenant    string         `help:"Tenant id." required:""`
	User      string         `arg:"" help:"User id."`
	Title     string         `help:"Organization title to create or join." required:""`
	Namespace string         `help:"Namespace of the default project (default: the tenant id)."`
}

func (c *InternalCreateUserCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.Target.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Internal.CreateUserInternal(ctx, connect.NewRequest(&usersv1.CreateUserInternalRequest{
		TenantId:            c.Tenant,
		Title:               c.Title,
		UserId:              c.User,
		KubernetesNamespace: c.Namespace,
	}))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		state := "exists"
		if resp.Msg.Created {
			state = "created"
		}
		fmt.Fprintf(w, "User:\t%s (%s)\n", resp.Msg.UserId, state)
		fmt.Fprintf(w, "Organization:\t%s\n", orDash(resp.Msg.OrganizationId))
		fmt.Fprintf(w, "Project:\t%s\n", orDash(resp.Msg.ProjectId))
	})
}

type InternalOrganizationsCmd struct {
	Target InternalTarget `embed:""`
	Tenant string         `help:"Only this tenant."`
}

func (c *InternalOrganizationsCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.Target.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Internal.ListInternalOrganizations(ctx, connect.NewRequest(&usersv1.InternalListRequest{TenantId: c.Tenant}))
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "TENANT\tID\tTITLE\tDEFAULT")
		for _, o := range resp.Msg.Organizations {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", o.TenantId, o.Organization.Id, o.Organization.Title, o.Organization.IsDefault)
		}
	})
}

type InternalProjectsCmd struct {
	Target InternalTarget `embed:""`
	Tenant string         `help:"Only this tenant."`
}

func (c *InternalProjectsCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.Target.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Internal.ListProjects(ctx, connect.NewRequest(&usersv1.InternalListRequest{TenantId: c.Tenant}))
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "TENANT\tORGANIZATION\tID\tTITLE\tNAMESPACE")
		for _, p := range resp.Msg.Projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.TenantId, p.Project.OrganizationId, p.Project.Id, p.Project.Title, orDash(p.Project.KubernetesNamespace))
		}
	})
}

type InternalKeysCmd struct {
	Target InternalTarget `embed:""`
	Tenant string         `help:"Only this tenant."`
}

func (c *InternalKeysCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.Target.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Internal.ListInternalAPIKeys(ctx, connect.NewRequest(&usersv1.InternalListRequest{TenantId: c.Tenant}))
	if err != nil {
		return fmt.Errorf("failed to list api keys: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "TENANT\tID\tNAME\tSECRET\tSA")
		for _, k := range resp.Msg.ApiKeys {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", k.TenantId, k.ApiKey.Id, k.ApiKey.Name, k.ApiKey.Secret, k.ApiKey.IsServiceAccount)
		}
	})
}
