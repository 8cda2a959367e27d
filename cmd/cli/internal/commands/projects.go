package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"connectrpc.com/connect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// ProjectsCmd manages projects and their members.
type ProjectsCmd struct {
	List    ProjectsListCmd   `cmd:"" help:"List projects in an organization." default:"1"`
	Create  ProjectsCreateCmd `cmd:"" help:"Create a project."`
	Update  ProjectsUpdateCmd `cmd:"" help:"Update a project."`
	Delete  ProjectsDeleteCmd `cmd:"" help:"Delete a project."`
	Members ProjectMembersCmd `cmd:"" help:"Manage project members."`
}

type ProjectsListCmd struct {
	Org     string `help:"Organization id (default: the credential's)." name:"org"`
	Summary bool   `help:"Include user counts."`
}

func (c *ProjectsListCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}

	resp, err := sess.Users.ListProjects(ctx, connect.NewRequest(&usersv1.ListProjectsRequest{
		OrganizationId: orgID,
		IncludeSummary: c.Summary,
	}))
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tTITLE\tNAMESPACE\tASSIGNMENTS\tUSERS\tCREATED")
		for _, p := range resp.Msg.Projects {
			users := "-"
			if p.Summary != nil {
				users = fmt.Sprint(p.Summary.UserCount)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Id, p.Title, orDash(p.KubernetesNamespace), orDash(formatAssignments(p.Assignments)), users, formatTime(p.CreatedAt))
		}
	})
}

type ProjectsCreateCmd struct {
	Title      string   `arg:"" help:"Project title."`
	Org        string   `help:"Organization id (default: the credential's)." name:"org"`
	Namespace  string   `help:"Kubernetes namespace."`
	Assignment []string `help:"Cluster assignment as cluster:namespace[:queue]. Repeatable." name:"assign"`
}

func (c *ProjectsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}
	assignments, err := parseAssignments(c.Assignment)
	if err != nil {
		return err
	}

	resp, err := sess.Users.CreateProject(ctx, connect.NewRequest(&usersv1.CreateProjectRequest{
		Title:               c.Title,
		OrganizationId:      orgID,
		KubernetesNamespace: c.Namespace,
		Assignments:         assignments,
	}))
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Created project %s (%s)\n", resp.Msg.Title, resp.Msg.Id)
	})
}

type ProjectsUpdateCmd struct {
	ID         string   `arg:"" help:"Project id."`
	Org        string   `help:"Organization id (default: the credential's)." name:"org"`
	Title      *string  `help:"New title."`
	Namespace  *string  `help:"New Kubernetes namespace."`
	Assignment []string `help:"Replace cluster assignments, as cluster:namespace[:queue]." name:"assign"`
}

func (c *ProjectsUpdateCmd) request(orgID string) (*usersv1.UpdateProjectRequest, error) {
	project := &usersv1.Project{Id: c.ID, OrganizationId: orgID}
	mask := &fieldmaskpb.FieldMask{}

	if c.Title != nil {
		project.Title = *c.Title
		mask.Paths = append(mask.Paths, "title")
	}
	if c.Namespace != nil {
		project.KubernetesNamespace = *c.Namespace
		mask.Paths = append(mask.Paths, "kubernetes_namespace")
	}
	if len(c.Assignment) > 0 {
		assignments, err := parseAssignments(c.Assignment)
		if err != nil {
			return nil, err
		}
		project.Assignments = assignments
		mask.Paths = append(mask.Paths, "assignments")
	}
	if len(mask.Paths) == 0 {
		return nil, errors.New("nothing to update; pass --title, --namespace or --assign")
	}

	return &usersv1.UpdateProjectRequest{Project: project, UpdateMask: mask}, nil
}

func (c *ProjectsUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}
	req, err := c.request(orgID)
	if err != nil {
		return err
	}

	resp, err := sess.Users.UpdateProject(ctx, connect.NewRequest(req))
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Updated project %s (%s)\n", resp.Msg.Title, resp.Msg.Id)
	})
}

type ProjectsDeleteCmd struct {
	ID  string `arg:"" help:"Project id."`
	Org string `help:"Organization id (default: the credential's)." name:"org"`
}

func (c *ProjectsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, err := sess.orgID(c.Org)
	if err != nil {
		return err
	}

	resp, err := sess.Users.DeleteProject(ctx, connect.NewRequest(&usersv1.DeleteProjectRequest{OrganizationId: orgID, Id: c.ID}))
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return printDeleted(globals, resp.Msg)
}

// ProjectMembersCmd manages project role bindings.
type ProjectMembersCmd struct {
	List   ProjectMembersListCmd   `cmd:"" help:"List members." default:"1"`
	Add    ProjectMembersAddCmd    `cmd:"" help:"Add a member."`
	Remove ProjectMembersRemoveCmd `cmd:"" help:"Remove a member."`
}

// ProjectScope selects a project, defaulting to the credential's scope.
type ProjectScope struct {
	Org     string `help:"Organization id (default: the credential's)." name:"org"`
	Project string `help:"Project id (default: the credential's)."`
}

func (s ProjectScope) resolve(sess *session) (string, string, error) {
	orgID, err := sess.orgID(s.Org)
	if err != nil {
		return "", "", err
	}
	projectID, err := sess.projectID(s.Project)
	if err != nil {
		return "", "", err
	}
	return orgID, projectID, nil
}

type ProjectMembersListCmd struct {
	Scope ProjectScope `embed:""`
}

func (c *ProjectMembersListCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, projectID, err := c.Scope.resolve(sess)
	if err != nil {
		return err
	}

	resp, err := sess.Users.ListProjectUsers(ctx, connect.NewRequest(&usersv1.ListProjectUsersRequest{
		OrganizationId: orgID,
		ProjectId:      projectID,
	}))
	if err != nil {
		return fmt.Errorf("failed to list project members: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "USER\tROLE")
		for _, u := range resp.Msg.Users {
			fmt.Fprintf(w, "%s\t%s\n", u.UserId, u.Role)
		}
	})
}

type ProjectMembersAddCmd struct {
	Scope ProjectScope `embed:""`
	User  string       `arg:"" help:"User id."`
	Role  string       `help:"Project role." enum:"owner,member" default:"member"`
}

func (c *ProjectMembersAddCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, projectID, err := c.Scope.resolve(sess)
	if err != nil {
		return err
	}

	resp, err := sess.Users.CreateProjectUser(ctx, connect.NewRequest(&usersv1.CreateProjectUserRequest{
		OrganizationId: orgID,
		ProjectId:      projectID,
		UserId:         c.User,
		Role:           projectRole(c.Role),
	}))
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
	}

	return globals.print(resp.Msg, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Added %s to %s as %s\n", resp.Msg.UserId, resp.Msg.ProjectId, resp.Msg.Role)
	})
}

type ProjectMembersRemoveCmd struct {
	Scope ProjectScope `embed:""`
	User  string       `arg:"" help:"User id."`
}

func (c *ProjectMembersRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	sess, err := globals.connect()
	if err != nil {
		return err
	}
	orgID, projectID, err := c.Scope.resolve(sess)
	if err != nil {
		return err
	}

	_, err = sess.Users.DeleteProjectUser(ctx, connect.NewRequest(&usersv1.DeleteProjectUserRequest{
		OrganizationId: orgID,
		ProjectId:      projectID,
		UserId:         c.User,
	}))
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	fmt.Fprintf(globals.out(), "Removed %s from %s\n", c.User, projectID)
	return nil
}

// parseAssignments parses cluster:namespace[:queue] values.
func parseAssignments(values []string) ([]*usersv1.ProjectAssignment, error) {
	var out []*usersv1.ProjectAssignment
	for _, v := range values {
		parts := strings.Split(v, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid assignment %q, want cluster:namespace[:queue]", v)
		}
		a := &usersv1.ProjectAssignment{ClusterId: parts[0], Namespace: parts[1]}
		if len(parts) == 3 {
			a.QueueName = parts[2]
		}
		out = append(out, a)
	}
	return out, nil
}

func formatAssignments(assignments []*usersv1.ProjectAssignment) string {
	parts := make([]string, 0, len(assignments))
	for _, a := range assignments {
		s := a.ClusterId + ":" + a.Namespace
		if a.QueueName != "" {
			s += ":" + a.QueueName
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ",")
}
