package server

import (
	"time"

	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/models"
)

func unixTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func toOrganizationRole(r usersv1.OrganizationRole) models.OrganizationRole {
	if r == "" {
		return models.OrganizationRoleUnspecified
	}
	return models.OrganizationRole(r)
}

func fromOrganizationRole(r models.OrganizationRole) usersv1.OrganizationRole {
	return usersv1.OrganizationRole(r)
}

func toProjectRole(r usersv1.ProjectRole) models.ProjectRole {
	if r == "" {
		return models.ProjectRoleUnspecified
	}
	return models.ProjectRole(r)
}

func fromProjectRole(r models.ProjectRole) usersv1.ProjectRole {
	return usersv1.ProjectRole(r)
}

func toOrganizationProto(o *models.Organization) *usersv1.Organization {
	return &usersv1.Organization{
		Id:        o.OrganizationID,
		Title:     o.Title,
		CreatedAt: unixTime(o.CreatedAt),
		IsDefault: o.IsDefault,
	}
}

func toOrganizationUserProto(ou *models.OrganizationUser) *usersv1.OrganizationUser {
	return &usersv1.OrganizationUser{
		UserId:         ou.UserID,
		OrganizationId: ou.OrganizationID,
		Role:           fromOrganizationRole(ou.Role),
	}
}

func toProjectProto(p *models.Project) *usersv1.Project {
	return &usersv1.Project{
		Id:                  p.ProjectID,
		Title:               p.Title,
		OrganizationId:      p.OrganizationID,
		KubernetesNamespace: p.KubernetesNamespace,
		Assignments:         toAssignmentsProto(p.Assignments),
		CreatedAt:           unixTime(p.CreatedAt),
		IsDefault:           p.IsDefault,
	}
}

func toAssignmentsProto(as []models.ProjectAssignment) []*usersv1.ProjectAssignment {
	if len(as) == 0 {
		return nil
	}
	out := make([]*usersv1.ProjectAssignment, 0, len(as))
	for _, a := range as {
		pa := &usersv1.ProjectAssignment{
			ClusterId: a.ClusterID,
			Namespace: a.Namespace,
			QueueName: a.QueueName,
		}
		for _, ns := range a.NodeSelector {
			pa.NodeSelector = append(pa.NodeSelector, &usersv1.NodeSelector{Key: ns.Key, Value: ns.Value})
		}
		out = append(out, pa)
	}
	return out
}

func fromAssignmentsProto(as []*usersv1.ProjectAssignment) []models.ProjectAssignment {
	if len(as) == 0 {
		return nil
	}
	out := make([]models.ProjectAssignment, 0, len(as))
	for _, a := range as {
		if a == nil {
			continue
		}
		ma := models.ProjectAssignment{
			ClusterID: a.ClusterId,
			Namespace: a.Namespace,
			QueueName: a.QueueName,
		}
		for _, ns := range a.NodeSelector {
			if ns == nil {
				continue
			}
			ma.NodeSelector = append(ma.NodeSelector, models.NodeSelector{Key: ns.Key, Value: ns.Value})
		}
		out = append(out, ma)
	}
	return out
}

func toProjectUserProto(pu *models.ProjectUser) *usersv1.ProjectUser {
	return &usersv1.ProjectUser{
		UserId:         pu.UserID,
		ProjectId:      pu.ProjectID,
		OrganizationId: pu.OrganizationID,
		Role:           fromProjectRole(pu.Role),
	}
}

func toUserProto(u *models.User, orgs []*models.OrganizationUser, projects []*models.ProjectUser) *usersv1.User {
	up := &usersv1.User{
		Id:               u.UserID,
		IsServiceAccount: u.IsServiceAccount,
		Hidden:           u.Hidden,
	}
	for _, ou := range orgs {
		up.OrganizationRoleBindings = append(up.OrganizationRoleBindings, &usersv1.OrganizationRoleBinding{
			OrganizationId: ou.OrganizationID,
			Role:           fromOrganizationRole(ou.Role),
		})
	}
	for _, pu := range projects {
		up.ProjectRoleBindings = append(up.ProjectRoleBindings, &usersv1.ProjectRoleBinding{
			ProjectId:      pu.ProjectID,
			OrganizationId: pu.OrganizationID,
			Role:           fromProjectRole(pu.Role),
		})
	}
	return up
}

// toAPIKeyProto renders a key. secret is the plaintext on creation and the hint
// everywhere else. org and project may be nil when they no longer exist.
func toAPIKeyProto(k *models.APIKey, secret string, org *models.Organization, project *models.Project) *usersv1.APIKey {
	kp := &usersv1.APIKey{
		Id:                       k.APIKeyID,
		Object:                   usersv1.ObjectAPIKey,
		Name:                     k.Name,
		Secret:                   secret,
		CreatedAt:                unixTime(k.CreatedAt),
		User:                     &usersv1.User{Id: k.UserID, IsServiceAccount: k.IsServiceAccount},
		Organization:             &usersv1.Organization{Id: k.OrganizationID},
		OrganizationRole:         fromOrganizationRole(k.OrganizationRole),
		ProjectRole:              fromProjectRole(k.ProjectRole),
		IsServiceAccount:         k.IsServiceAccount,
		ExcludedFromRateLimiting: k.ExcludedFromRateLimiting,
	}
	if org != nil {
		kp.Organization.Title = org.Title
	}
	if k.ProjectID != "" {
		kp.Project = &usersv1.Project{Id: k.ProjectID, OrganizationId: k.OrganizationID}
		if project != nil {
			kp.Project.Title = project.Title
			kp.Project.KubernetesNamespace = project.KubernetesNamespace
		}
	}
	return kp
}
