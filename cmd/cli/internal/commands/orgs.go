package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"connectrpc.com/connect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
)

// OrgsCmd manages organizations and their members.
type OrgsCmd struct {
	List    OrgsListCmd   `cmd:"" help:"List organizations visible to the caller." default:"1"`
	Create  OrgsCreateCmd `cmd:"" help:"Create an organization."`
	Delete  OrgsDeleteCmd `cmd:"" help:"Delete an organization with no projects."`
	Members OrgMembersCmd `cmd:"" help:"Manage organization members."`
}

type OrgsListCmd struct {
	Summary bool `help:"Include project and user counts."`
}

func (c *OrgsListCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.ListOrganizations(ctx, connect.NewRequest(&usersv1.ListOrganizationsRequest{IncludeSummary: c.Summary}))
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tTITLE\tDEFAULT\tPROJECTS\tUSERS\tCREATED")
		for _, org := range resp.Msg.Organizations {
			projects, users := "-", "-"
			if org.Summary != nil {
				projects = fmt.Sprint(org.Summary.ProjectCount)
				users = fmt.Sprint(org.Summary.UserCount)
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n", org.Id, org.Title, org.IsDefault, projects, users, formatTime(org.CreatedAt))
		}
	})
}

type OrgsCreateCmd struct {
	Title string `arg:"" help:"Organization title."`
}

func (c *OrgsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.CreateOrganization(ctx, connect.NewRequest(&usersv1.CreateOrganizationRequest{Title: c.Title}))
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Created organization %s (%s)\n", resp.Msg.Title, resp.Msg.Id)
	})
}

type OrgsDeleteCmd struct {
	ID string `arg:"" help:"Organization id."`
}

func (c *OrgsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.DeleteOrganization(ctx, connect.NewRequest(&usersv1.DeleteOrganizationRequest{Id: c.ID}))
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return printDeleted(globals, resp.Msg)
}

// OrgMembersCmd manages organization role bindings.
type OrgMembersCmd struct {
	List   OrgMembersListCmd   `cmd:"" help:"List members." default:"1"`
	Add    OrgMembersAddCmd    `cmd:"" help:"Add a member."`
	Remove OrgMembersRemoveCmd `cmd:"" help:"Remove a member."`
}

type OrgMembersListCmd struct {
	Org string `help:"Organization id (default: the credential's)." name:"org"`
}

func (c *OrgMembersListCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}

	resp, err := sess.Users.ListOrganizationUsers(ctx, connect.NewRequest(&usersv1.ListOrganizationUsersRequest{OrganizationId: orgID}))
	if err != nil {
		return fmt.Errorf("failed to list organization members: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "USER\tINTERNAL ID\tROLE")
		for _, u := range resp.Msg.Users {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.UserId, orDash(u.InternalUserId), u.Role)
		}
	})
}

type OrgMembersAddCmd struct {
	User string `arg:"" help:"User id."`
	Org  string `help:"Organization id (default: the credential's)." name:"org"`
	Role string `help:"Organization role." enum:"owner,reader" default:"reader"`
}

func (c *OrgMembersAddCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}

	resp, err := sess.Users.CreateOrganizationUser(ctx, connect.NewRequest(&usersv1.CreateOrganizationUserRequest{
		OrganizationId: orgID,
		UserId:         c.User,
		Role:           organizationRole(c.Role),
	}))
	if err != nil {
		return fmt.Errorf("failed to add organization member: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Added %s to %s as %s\n", resp.Msg.UserId, resp.Msg.OrganizationId, resp.Msg.Role)
	})
}

type OrgMembersRemoveCmd struct {
	User string `arg:"" help:"User id."`
	Org  string `help:"Organization id (default: the credential's)." name:"org"`
}

func (c *OrgMembersRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}

	_, err = sess.Users.DeleteOrganizationUser(ctx, connect.NewRequest(&usersv1.DeleteOrganizationUserRequest{
		OrganizationId: orgID,
		UserId:         c.User,
	}))
	if err != nil {
		return fmt.Errorf("failed to remove organization member: %w", err)
	}
	fmt.Fprintf(globals.out(), "Removed %s from %s\n", c.User, orgID)
	return nil
}

func organizationRole(s string) usersv1.OrganizationRole {
	switch s {
	case "owner":
		return usersv1.OrganizationRole_ORGANIZATION_ROLE_OWNER
	case "reader":
		return usersv1.OrganizationRole_ORGANIZATION_ROLE_READER
	}
	return usersv1.OrganizationRole_ORGANIZATION_ROLE_UNSPECIFIED
}

func projectRole(s string) usersv1.ProjectRole {
	switch s {
	case "owner":
		return usersv1.ProjectRole_PROJECT_ROLE_OWNER
	case "member":
		return usersv1.ProjectRole_PROJECT_ROLE_MEMBER
	}
	return usersv1.ProjectRole_PROJECT_ROLE_UNSPECIFIED
}

func printDeleted(globals *Globals, resp *usersv1.DeleteResponse) error {
	return globals.print(resp, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Deleted %s %s\n", resp.Object, resp.Id)
	})
}
