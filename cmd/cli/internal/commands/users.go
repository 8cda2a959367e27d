package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"connectrpc.com/connect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
)

// WhoamiCmd prints the caller and their role bindings.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.GetUserSelf(ctx, connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	return printUser(globals, resp.Msg)
}

// UsersCmd inspects users of the caller's tenant.
type UsersCmd struct {
	List UsersListCmd `cmd:"" help:"List users." default:"1"`
	Get  UsersGetCmd  `cmd:"" help:"Show a user and their role bindings."`
}

type UsersListCmd struct {
	Hidden bool `help:"Include hidden service account users."`
}

func (c *UsersListCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.ListUsers(ctx, connect.NewRequest(&usersv1.ListUsersRequest{IncludeHidden: c.Hidden}))
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tINTERNAL ID\tSA\tORGANIZATIONS\tPROJECTS")
		for _, u := range resp.Msg.Users {
			fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\n", u.Id, orDash(u.InternalId), u.IsServiceAccount, len(u.OrganizationRoleBindings), len(u.ProjectRoleBindings))
		}
	})
}

type UsersGetCmd struct {
	ID string `arg:"" help:"User id."`
}

func (c *UsersGetCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}

	resp, err := sess.Users.GetUser(ctx, connect.NewRequest(&usersv1.GetUserRequest{Id: c.ID}))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	return printUser(globals, resp.Msg)
}

func printUser(globals *Globals, u *usersv1.User) error {
	return globals.print(u, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "User:\t%s\n", u.Id)
		fmt.Fprintf(w, "Internal ID:\t%s\n", orDash(u.InternalId))
		if u.IsServiceAccount {
			fmt.Fprintln(w, "Service account:\ttrue")
		}
		for _, b := range u.OrganizationRoleBindings {
			fmt.Fprintf(w, "Organization:\t%s\t%s\n", b.OrganizationId, trimRole(string(b.Role), "ORGANIZATION_ROLE_"))
		}
		for _, b := range u.ProjectRoleBindings {
			fmt.Fprintf(w, "Project:\t%s\t%s\n", b.ProjectId, trimRole(string(b.Role), "PROJECT_ROLE_"))
		}
	})
}

func trimRole(role, prefix string) string {
	return strings.ToLower(strings.TrimPrefix(role, prefix))
}
