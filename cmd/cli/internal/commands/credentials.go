package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"connectrpc.com/connect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
)

// LoginCmd verifies an API key against the server and stores it.
type LoginCmd struct {
	Name      string `arg:"" help:"Name for the stored credential."`
	ServerURL string `help:"Server URL." required:"" name:"server-url"`
	Key       string `help:"API key secret (sk-...)." required:"" env:"USERSCTL_LOGIN_KEY"`
	Default   bool   `help:"Make this the default credential."`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	verify := &Globals{Server: l.ServerURL, APIKey: l.Key, Debug: globals.Debug, CredentialsDir: globals.CredentialsDir}
	sess, err := verify.connect()
	if err != nil {
		return err
	}

	self, err := sess.Users.GetUserSelf(ctx, connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	if err != nil {
		return fmt.Errorf("failed to verify api key: %w", err)
	}

	store, err := globals.store()
	if err != nil {
		return err
	}
	cred, err := store.Add(l.Name, l.ServerURL, l.Key)
	if err != nil {
		return err
	}

	// pick up a scope when the key belongs to exactly one organization
	if bindings := self.Msg.OrganizationRoleBindings; len(bindings) == 1 {
		projectID := ""
		if pb := self.Msg.ProjectRoleBindings; len(pb) == 1 && pb[0].OrganizationId == bindings[0].OrganizationId {
			projectID = pb[0].ProjectId
		}
		if err := store.SetScope(cred.Name, bindings[0].OrganizationId, projectID); err != nil {
			return err
		}
	}

	if l.Default {
		if err := store.SetDefault(cred.Name); err != nil {
			return err
		}
	}

	fmt.Fprintf(globals.out(), "Logged in to %s as %s (%s)\n", cred.ServerURL, self.Msg.Id, cred.Hint())
	return nil
}

// CredentialsCmd manages stored credentials.
type CredentialsCmd struct {
	List       CredentialsListCmd       `cmd:"" help:"List stored credentials." default:"1"`
	Delete     CredentialsDeleteCmd     `cmd:"" help:"Delete a stored credential."`
	SetDefault CredentialsSetDefaultCmd `cmd:"" name:"set-default" help:"Set the default credential."`
	Use        CredentialsUseCmd        `cmd:"" help:"Set the organization and project a credential defaults to."`
}

type CredentialsListCmd struct{}

func (c *CredentialsListCmd) Run(globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}

	creds, err := store.List()
	if err != nil {
		return err
	}

	defaultName := ""
	if def, err := store.GetDefault(); err == nil {
		defaultName = def.Name
	}

	if len(creds) == 0 && globals.Output != "json" {
		fmt.Fprintln(globals.out(), "No credentials stored. Run: usersctl login <name> --server-url <url> --key <key>")
		return nil
	}

	type row struct {
		Name           string `json:"name"`
		ServerURL      string `json:"server_url"`
		Key            string `json:"key"`
		OrganizationID string `json:"organization_id,omitempty"`
		ProjectID      string `json:"project_id,omitempty"`
		Default        bool   `json:"default"`
	}
	rows := make([]row, 0, len(creds))
	for _, cred := range creds {
		rows = append(rows, row{
			Name:           cred.Name,
			ServerURL:      cred.ServerURL,
			Key:            cred.Hint(),
			OrganizationID: cred.OrganizationID,
			ProjectID:      cred.ProjectID,
			Default:        cred.Name == defaultName,
		})
	}

	return globals.print(rows, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NAME\tSERVER\tKEY\tORGANIZATION\tPROJECT\tDEFAULT")
		for _, r := range rows {
			def := ""
			if r.Default {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.ServerURL, r.Key, orDash(r.OrganizationID), orDash(r.ProjectID), def)
		}
	})
}

type CredentialsDeleteCmd struct {
	Name string `arg:"" help:"Credential name."`
}

func (c *CredentialsDeleteCmd) Run(globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}
	if err := store.Delete(c.Name); err != nil {
		return err
	}
	fmt.Fprintf(globals.out(), "Deleted credential %s\n", c.Name)
	return nil
}

type CredentialsSetDefaultCmd struct {
	Name string `arg:"" help:"Credential name."`
}

func (c *CredentialsSetDefaultCmd) Run(globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}
	if err := store.SetDefault(c.Name); err != nil {
		return err
	}
	fmt.Fprintf(globals.out(), "Default credential is now %s\n", c.Name)
	return nil
}

type CredentialsUseCmd struct {
	Org     string `help:"Organization id." name:"org"`
	Project string `help:"Project id."`
}

func (c *CredentialsUseCmd) Run(globals *Globals) error {
	store, err := globals.store()
	if err != nil {
		return err
	}

	cred, err := store.Resolve(globals.Credential)
	if err != nil {
		return err
	}

	org, project := c.Org, c.Project
	if org == "" {
		org = cred.OrganizationID
	}
	if project == "" && org == cred.OrganizationID {
		project = cred.ProjectID
	}

	if err := store.SetScope(cred.Name, org, project); err != nil {
		return err
	}
	fmt.Fprintf(globals.out(), "Credential %s now uses organization %s, project %s\n", cred.Name, orDash(org), orDash(project))
	return nil
}
