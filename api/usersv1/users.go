// Package usersv1 holds the request and response messages of the users API.
//
// Messages are plain Go structs encoded as JSON with camelCase field names, the
// same shape the REST gateway and connect handlers exchange on the wire.
package usersv1

import (
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

type OrganizationRole string

const (
	OrganizationRole_ORGANIZATION_ROLE_UNSPECIFIED   OrganizationRole = "ORGANIZATION_ROLE_UNSPECIFIED"
	OrganizationRole_ORGANIZATION_ROLE_OWNER         OrganizationRole = "ORGANIZATION_ROLE_OWNER"
	OrganizationRole_ORGANIZATION_ROLE_READER        OrganizationRole = "ORGANIZATION_ROLE_READER"
	OrganizationRole_ORGANIZATION_ROLE_TENANT_SYSTEM OrganizationRole = "ORGANIZATION_ROLE_TENANT_SYSTEM"
)

type ProjectRole string

const (
	ProjectRole_PROJECT_ROLE_UNSPECIFIED ProjectRole = "PROJECT_ROLE_UNSPECIFIED"
	ProjectRole_PROJECT_ROLE_OWNER       ProjectRole = "PROJECT_ROLE_OWNER"
	ProjectRole_PROJECT_ROLE_MEMBER      ProjectRole = "PROJECT_ROLE_MEMBER"
)

// Object names carried in responses.
const (
	ObjectAPIKey           = "user.api_key"
	ObjectAPIKeyDeleted    = "users.api_key"
	ObjectOrganization     = "organization"
	ObjectOrganizationUser = "organization.user"
	ObjectProject          = "project"
	ObjectProjectUser      = "project.user"
	ObjectList             = "list"
)

type APIKey struct {
	Id           string        `json:"id,omitempty"`
	Object       string        `json:"object,omitempty"`
	Name         string        `json:"name,omitempty"`
	Secret       string        `json:"secret,omitempty"`
	CreatedAt    int64         `json:"createdAt,omitempty"`
	User         *User         `json:"user,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
	Project      *Project      `json:"project,omitempty"`

	OrganizationRole         OrganizationRole `json:"organizationRole,omitempty"`
	ProjectRole              ProjectRole      `json:"projectRole,omitempty"`
	IsServiceAccount         bool             `json:"isServiceAccount,omitempty"`
	ExcludedFromRateLimiting bool             `json:"excludedFromRateLimiting,omitempty"`
}

type User struct {
	Id               string `json:"id,omitempty"`
	InternalId       string `json:"internalId,omitempty"`
	IsServiceAccount bool   `json:"isServiceAccount,omitempty"`
	Hidden           bool   `json:"hidden,omitempty"`

	OrganizationRoleBindings []*OrganizationRoleBinding `json:"organizationRoleBindings,omitempty"`
	ProjectRoleBindings      []*ProjectRoleBinding      `json:"projectRoleBindings,omitempty"`
}

type OrganizationRoleBinding struct {
	OrganizationId string           `json:"organizationId,omitempty"`
	Role           OrganizationRole `json:"role,omitempty"`
}

type ProjectRoleBinding struct {
	ProjectId      string      `json:"projectId,omitempty"`
	OrganizationId string      `json:"organizationId,omitempty"`
	Role           ProjectRole `json:"role,omitempty"`
}

type Organization struct {
	Id        string               `json:"id,omitempty"`
	Title     string               `json:"title,omitempty"`
	CreatedAt int64                `json:"createdAt,omitempty"`
	IsDefault bool                 `json:"isDefault,omitempty"`
	Summary   *OrganizationSummary `json:"summary,omitempty"`
}

type OrganizationSummary struct {
	ProjectCount int32 `json:"projectCount"`
	UserCount    int32 `json:"userCount"`
}

type OrganizationUser struct {
	UserId         string           `json:"userId,omitempty"`
	InternalUserId string           `json:"internalUserId,omitempty"`
	OrganizationId string           `json:"organizationId,omitempty"`
	Role           OrganizationRole `json:"role,omitempty"`
}

type Project struct {
	Id                  string               `json:"id,omitempty"`
	Title               string               `json:"title,omitempty"`
	OrganizationId      string               `json:"organizationId,omitempty"`
	KubernetesNamespace string               `json:"kubernetesNamespace,omitempty"`
	Assignments         []*ProjectAssignment `json:"assignments,omitempty"`
	CreatedAt           int64                `json:"createdAt,omitempty"`
	IsDefault           bool                 `json:"isDefault,omitempty"`
	Summary             *ProjectSummary      `json:"summary,omitempty"`
}

type ProjectAssignment struct {
	ClusterId    string          `json:"clusterId,omitempty"`
	Namespace    string          `json:"namespace,omitempty"`
	QueueName    string          `json:"queueName,omitempty"`
	NodeSelector []*NodeSelector `json:"nodeSelector,omitempty"`
}

type NodeSelector struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

type ProjectSummary struct {
	UserCount int32 `json:"userCount"`
}

type ProjectUser struct {
	UserId         string      `json:"userId,omitempty"`
	ProjectId      string      `json:"projectId,omitempty"`
	OrganizationId string      `json:"organizationId,omitempty"`
	Role           ProjectRole `json:"role,omitempty"`
}

// DeleteResponse is shared by every delete operation.
type DeleteResponse struct {
	Id      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// API keys

type CreateAPIKeyRequest struct {
	Name           string `json:"name,omitempty"`
	OrganizationId string `json:"organizationId,omitempty"`
	ProjectId      string `json:"projectId,omitempty"`

	// Roles default to the caller's own role in the key's scope.
	OrganizationRole OrganizationRole `json:"organizationRole,omitempty"`
	ProjectRole      ProjectRole      `json:"projectRole,omitempty"`

	IsServiceAccount         bool `json:"isServiceAccount,omitempty"`
	ExcludedFromRateLimiting bool `json:"excludedFromRateLimiting,omitempty"`
}

type ListAPIKeysRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	ProjectId      string `json:"projectId,omitempty"`
}

type ListAPIKeysResponse struct {
	Object string    `json:"object"`
	Data   []*APIKey `json:"data"`
}

type UpdateAPIKeyRequest struct {
	ApiKey     *APIKey                `json:"apiKey,omitempty"`
	UpdateMask *fieldmaskpb.FieldMask `json:"updateMask,omitempty"`
}

type DeleteAPIKeyRequest struct {
	Id             string `json:"id,omitempty"`
	OrganizationId string `json:"organizationId,omitempty"`
	ProjectId      string `json:"projectId,omitempty"`
}

// Organizations

type CreateOrganizationRequest struct {
	Title string `json:"title,omitempty"`
}

type ListOrganizationsRequest struct {
	IncludeSummary bool `json:"includeSummary,omitempty"`
}

type ListOrganizationsResponse struct {
	Organizations []*Organization `json:"organizations"`
}

type DeleteOrganizationRequest struct {
	Id string `json:"id,omitempty"`
}

type CreateOrganizationUserRequest struct {
	OrganizationId string           `json:"organizationId,omitempty"`
	UserId         string           `json:"userId,omitempty"`
	Role           OrganizationRole `json:"role,omitempty"`
}

type ListOrganizationUsersRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
}

type ListOrganizationUsersResponse struct {
	Users []*OrganizationUser `json:"users"`
}

type DeleteOrganizationUserRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	UserId         string `json:"userId,omitempty"`
}

// Projects

type CreateProjectRequest struct {
	Title               string               `json:"title,omitempty"`
	OrganizationId      string               `json:"organizationId,omitempty"`
	KubernetesNamespace string               `json:"kubernetesNamespace,omitempty"`
	Assignments         []*ProjectAssignment `json:"assignments,omitempty"`
}

type ListProjectsRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	IncludeSummary bool   `json:"includeSummary,omitempty"`
}

type ListProjectsResponse struct {
	Projects []*Project `json:"projects"`
}

type UpdateProjectRequest struct {
	Project    *Project               `json:"project,omitempty"`
	UpdateMask *fieldmaskpb.FieldMask `json:"updateMask,omitempty"`
}

type DeleteProjectRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	Id             string `json:"id,omitempty"`
}

type CreateProjectUserRequest struct {
	OrganizationId string      `json:"organizationId,omitempty"`
	ProjectId      string      `json:"projectId,omitempty"`
	UserId         string      `json:"userId,omitempty"`
	Role           ProjectRole `json:"role,omitempty"`
}

type ListProjectUsersRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	ProjectId      string `json:"projectId,omitempty"`
}

type ListProjectUsersResponse struct {
	Users []*ProjectUser `json:"users"`
}

type DeleteProjectUserRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	ProjectId      string `json:"projectId,omitempty"`
	UserId         string `json:"userId,omitempty"`
}

// Users

type GetUserSelfRequest struct{}

type GetUserRequest struct {
	Id string `json:"id,omitempty"`
}

type ListUsersRequest struct {
	IncludeHidden bool `json:"includeHidden,omitempty"`
}

type ListUsersResponse struct {
	Users []*User `json:"users"`
}

// Internal

type CreateUserInternalRequest struct {
	TenantId            string `json:"tenantId,omitempty"`
	Title               string `json:"title,omitempty"`
	UserId              string `json:"userId,omitempty"`
	KubernetesNamespace string `json:"kubernetesNamespace,omitempty"`
}

type CreateUserInternalResponse struct {
	UserId         string `json:"userId,omitempty"`
	OrganizationId string `json:"organizationId,omitempty"`
	ProjectId      string `json:"projectId,omitempty"`
	Created        bool   `json:"created"`
}

// InternalListRequest scopes an internal listing to one tenant; empty means all tenants.
type InternalListRequest struct {
	TenantId string `json:"tenantId,omitempty"`
}

type InternalAPIKey struct {
	ApiKey   *APIKey `json:"apiKey,omitempty"`
	TenantId string  `json:"tenantId,omitempty"`
}

type ListInternalAPIKeysResponse struct {
	ApiKeys []*InternalAPIKey `json:"apiKeys"`
}

type InternalOrganization struct {
	Organization *Organization `json:"organization,omitempty"`
	TenantId     string        `json:"tenantId,omitempty"`
}

type ListInternalOrganizationsResponse struct {
	Organizations []*InternalOrganization `json:"organizations"`
}

type InternalProject struct {
	Project  *Project `json:"project,omitempty"`
	TenantId string   `json:"tenantId,omitempty"`
}

type ListInternalProjectsResponse struct {
	Projects []*InternalProject `json:"projects"`
}
