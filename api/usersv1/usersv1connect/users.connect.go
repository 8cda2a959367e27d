// Package usersv1connect binds the users API messages to connect handlers and clients.
package usersv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
)

const (
	// UsersServiceName is the fully-qualified name of the UsersService service.
	UsersServiceName = "llmariner.users.server.v1.UsersService"
	// UsersInternalServiceName is the fully-qualified name of the UsersInternalService service.
	UsersInternalServiceName = "llmariner.users.server.v1.UsersInternalService"
	// LegacyUsersInternalServiceName is the name the internal service was published under
	// before the namespace rename. Both names serve identical handlers.
	LegacyUsersInternalServiceName = "llmoperator.users.server.v1.UsersInternalService"
)

// Procedure names for UsersService.
const (
	UsersServiceCreateAPIKeyProcedure           = "/" + UsersServiceName + "/CreateAPIKey"
	UsersServiceListAPIKeysProcedure            = "/" + UsersServiceName + "/ListAPIKeys"
	UsersServiceUpdateAPIKeyProcedure           = "/" + UsersServiceName + "/UpdateAPIKey"
	UsersServiceDeleteAPIKeyProcedure           = "/" + UsersServiceName + "/DeleteAPIKey"
	UsersServiceCreateProjectAPIKeyProcedure    = "/" + UsersServiceName + "/CreateProjectAPIKey"
	UsersServiceListProjectAPIKeysProcedure     = "/" + UsersServiceName + "/ListProjectAPIKeys"
	UsersServiceDeleteProjectAPIKeyProcedure    = "/" + UsersServiceName + "/DeleteProjectAPIKey"
	UsersServiceCreateOrganizationProcedure     = "/" + UsersServiceName + "/CreateOrganization"
	UsersServiceListOrganizationsProcedure      = "/" + UsersServiceName + "/ListOrganizations"
	UsersServiceDeleteOrganizationProcedure     = "/" + UsersServiceName + "/DeleteOrganization"
	UsersServiceCreateOrganizationUserProcedure = "/" + UsersServiceName + "/CreateOrganizationUser"
	UsersServiceListOrganizationUsersProcedure  = "/" + UsersServiceName + "/ListOrganizationUsers"
	UsersServiceDeleteOrganizationUserProcedure = "/" + UsersServiceName + "/DeleteOrganizationUser"
	UsersServiceCreateProjectProcedure          = "/" + UsersServiceName + "/CreateProject"
	UsersServiceListProjectsProcedure           = "/" + UsersServiceName + "/ListProjects"
	UsersServiceUpdateProjectProcedure          = "/" + UsersServiceName + "/UpdateProject"
	UsersServiceDeleteProjectProcedure          = "/" + UsersServiceName + "/DeleteProject"
	UsersServiceCreateProjectUserProcedure      = "/" + UsersServiceName + "/CreateProjectUser"
	UsersServiceListProjectUsersProcedure       = "/" + UsersServiceName + "/ListProjectUsers"
	UsersServiceDeleteProjectUserProcedure      = "/" + UsersServiceName + "/DeleteProjectUser"
	UsersServiceGetUserSelfProcedure            = "/" + UsersServiceName + "/GetUserSelf"
	UsersServiceGetUserProcedure                = "/" + UsersServiceName + "/GetUser"
	UsersServiceListUsersProcedure              = "/" + UsersServiceName + "/ListUsers"
)

// Method names for UsersInternalService. Combine with a service name via InternalProcedure.
const (
	UsersInternalServiceCreateUserInternalMethod        = "CreateUserInternal"
	UsersInternalServiceListInternalAPIKeysMethod       = "ListInternalAPIKeys"
	UsersInternalServiceListInternalOrganizationsMethod = "ListInternalOrganizations"
	UsersInternalServiceListOrganizationUsersMethod     = "ListOrganizationUsers"
	UsersInternalServiceListProjectsMethod              = "ListProjects"
	UsersInternalServiceListProjectUsersMethod          = "ListProjectUsers"
	UsersInternalServiceListUsersMethod                 = "ListUsers"
)

// InternalProcedure returns the procedure path of an internal method under serviceName.
func InternalProcedure(serviceName, method string) string {
	return "/" + serviceName + "/" + method
}

// withJSON prepends the JSON codec so callers can still override it.
func withJSON[T any](opts []T, codec T) []T {
	return append([]T{codec}, opts...)
}

// UsersServiceHandler is implemented by the public users service.
type UsersServiceHandler interface {
	// Creates an API key. The response carries the secret; it is never returned again.
	CreateAPIKey(context.Context, *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error)
	ListAPIKeys(context.Context, *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error)
	UpdateAPIKey(context.Context, *connect.Request[usersv1.UpdateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error)
	DeleteAPIKey(context.Context, *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateProjectAPIKey(context.Context, *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error)
	ListProjectAPIKeys(context.Context, *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error)
	DeleteProjectAPIKey(context.Context, *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateOrganization(context.Context, *connect.Request[usersv1.CreateOrganizationRequest]) (*connect.Response[usersv1.Organization], error)
	ListOrganizations(context.Context, *connect.Request[usersv1.ListOrganizationsRequest]) (*connect.Response[usersv1.ListOrganizationsResponse], error)
	DeleteOrganization(context.Context, *connect.Request[usersv1.DeleteOrganizationRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateOrganizationUser(context.Context, *connect.Request[usersv1.CreateOrganizationUserRequest]) (*connect.Response[usersv1.OrganizationUser], error)
	ListOrganizationUsers(context.Context, *connect.Request[usersv1.ListOrganizationUsersRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error)
	DeleteOrganizationUser(context.Context, *connect.Request[usersv1.DeleteOrganizationUserRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateProject(context.Context, *connect.Request[usersv1.CreateProjectRequest]) (*connect.Response[usersv1.Project], error)
	ListProjects(context.Context, *connect.Request[usersv1.ListProjectsRequest]) (*connect.Response[usersv1.ListProjectsResponse], error)
	UpdateProject(context.Context, *connect.Request[usersv1.UpdateProjectRequest]) (*connect.Response[usersv1.Project], error)
	DeleteProject(context.Context, *connect.Request[usersv1.DeleteProjectRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateProjectUser(context.Context, *connect.Request[usersv1.CreateProjectUserRequest]) (*connect.Response[usersv1.ProjectUser], error)
	ListProjectUsers(context.Context, *connect.Request[usersv1.ListProjectUsersRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error)
	DeleteProjectUser(context.Context, *connect.Request[usersv1.DeleteProjectUserRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	GetUserSelf(context.Context, *connect.Request[usersv1.GetUserSelfRequest]) (*connect.Response[usersv1.User], error)
	GetUser(context.Context, *connect.Request[usersv1.GetUserRequest]) (*connect.Response[usersv1.User], error)
	ListUsers(context.Context, *connect.Request[usersv1.ListUsersRequest]) (*connect.Response[usersv1.ListUsersResponse], error)
}

// NewUsersServiceHandler builds an HTTP handler from the service implementation. It
// returns the path on which to mount the handler and the handler itself.
func NewUsersServiceHandler(svc UsersServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts, connect.HandlerOption(connect.WithCodec(usersv1.JSONCodec{})))
	handlers := map[string]http.Handler{
		UsersServiceCreateAPIKeyProcedure:           connect.NewUnaryHandler(UsersServiceCreateAPIKeyProcedure, svc.CreateAPIKey, opts...),
		UsersServiceListAPIKeysProcedure:            connect.NewUnaryHandler(UsersServiceListAPIKeysProcedure, svc.ListAPIKeys, opts...),
		UsersServiceUpdateAPIKeyProcedure:           connect.NewUnaryHandler(UsersServiceUpdateAPIKeyProcedure, svc.UpdateAPIKey, opts...),
		UsersServiceDeleteAPIKeyProcedure:           connect.NewUnaryHandler(UsersServiceDeleteAPIKeyProcedure, svc.DeleteAPIKey, opts...),
		UsersServiceCreateProjectAPIKeyProcedure:    connect.NewUnaryHandler(UsersServiceCreateProjectAPIKeyProcedure, svc.CreateProjectAPIKey, opts...),
		UsersServiceListProjectAPIKeysProcedure:     connect.NewUnaryHandler(UsersServiceListProjectAPIKeysProcedure, svc.ListProjectAPIKeys, opts...),
		UsersServiceDeleteProjectAPIKeyProcedure:    connect.NewUnaryHandler(UsersServiceDeleteProjectAPIKeyProcedure, svc.DeleteProjectAPIKey, opts...),
		UsersServiceCreateOrganizationProcedure:     connect.NewUnaryHandler(UsersServiceCreateOrganizationProcedure, svc.CreateOrganization, opts...),
		UsersServiceListOrganizationsProcedure:      connect.NewUnaryHandler(UsersServiceListOrganizationsProcedure, svc.ListOrganizations, opts...),
		UsersServiceDeleteOrganizationProcedure:     connect.NewUnaryHandler(UsersServiceDeleteOrganizationProcedure, svc.DeleteOrganization, opts...),
		UsersServiceCreateOrganizationUserProcedure: connect.NewUnaryHandler(UsersServiceCreateOrganizationUserProcedure, svc.CreateOrganizationUser, opts...),
		UsersServiceListOrganizationUsersProcedure:  connect.NewUnaryHandler(UsersServiceListOrganizationUsersProcedure, svc.ListOrganizationUsers, opts...),
		UsersServiceDeleteOrganizationUserProcedure: connect.NewUnaryHandler(UsersServiceDeleteOrganizationUserProcedure, svc.DeleteOrganizationUser, opts...),
		UsersServiceCreateProjectProcedure:          connect.NewUnaryHandler(UsersServiceCreateProjectProcedure, svc.CreateProject, opts...),
		UsersServiceListProjectsProcedure:           connect.NewUnaryHandler(UsersServiceListProjectsProcedure, svc.ListProjects, opts...),
		UsersServiceUpdateProjectProcedure:          connect.NewUnaryHandler(UsersServiceUpdateProjectProcedure, svc.UpdateProject, opts...),
		UsersServiceDeleteProjectProcedure:          connect.NewUnaryHandler(UsersServiceDeleteProjectProcedure, svc.DeleteProject, opts...),
		UsersServiceCreateProjectUserProcedure:      connect.NewUnaryHandler(UsersServiceCreateProjectUserProcedure, svc.CreateProjectUser, opts...),
		UsersServiceListProjectUsersProcedure:       connect.NewUnaryHandler(UsersServiceListProjectUsersProcedure, svc.ListProjectUsers, opts...),
		UsersServiceDeleteProjectUserProcedure:      connect.NewUnaryHandler(UsersServiceDeleteProjectUserProcedure, svc.DeleteProjectUser, opts...),
		UsersServiceGetUserSelfProcedure:            connect.NewUnaryHandler(UsersServiceGetUserSelfProcedure, svc.GetUserSelf, opts...),
		UsersServiceGetUserProcedure:                connect.NewUnaryHandler(UsersServiceGetUserProcedure, svc.GetUser, opts...),
		UsersServiceListUsersProcedure:              connect.NewUnaryHandler(UsersServiceListUsersProcedure, svc.ListUsers, opts...),
	}
	return "/" + UsersServiceName + "/", routeHandlers(handlers)
}

// UsersInternalServiceHandler is implemented by the internal tenant gateway.
type UsersInternalServiceHandler interface {
	CreateUserInternal(context.Context, *connect.Request[usersv1.CreateUserInternalRequest]) (*connect.Response[usersv1.CreateUserInternalResponse], error)
	ListInternalAPIKeys(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalAPIKeysResponse], error)
	ListInternalOrganizations(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalOrganizationsResponse], error)
	ListOrganizationUsers(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error)
	ListProjects(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalProjectsResponse], error)
	ListProjectUsers(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error)
	ListUsers(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListUsersResponse], error)
}

// NewUsersInternalServiceHandler mounts the internal service under UsersInternalServiceName.
func NewUsersInternalServiceHandler(svc UsersInternalServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return newUsersInternalServiceHandler(UsersInternalServiceName, svc, opts...)
}

// NewLegacyUsersInternalServiceHandler mounts the internal service under LegacyUsersInternalServiceName.
func NewLegacyUsersInternalServiceHandler(svc UsersInternalServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return newUsersInternalServiceHandler(LegacyUsersInternalServiceName, svc, opts...)
}

func newUsersInternalServiceHandler(serviceName string, svc UsersInternalServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts, connect.HandlerOption(connect.WithCodec(usersv1.JSONCodec{})))
	handlers := map[string]http.Handler{}
	p := InternalProcedure(serviceName, UsersInternalServiceCreateUserInternalMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.CreateUserInternal, opts...)
	p = InternalProcedure(serviceName, UsersInternalServiceListInternalAPIKeysMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.ListInternalAPIKeys, opts...)
	p = InternalProcedure(serviceName, UsersInternalServiceListInternalOrganizationsMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.ListInternalOrganizations, opts...)
	p = InternalProcedure(serviceName, UsersInternalServiceListOrganizationUsersMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.ListOrganizationUsers, opts...)
	p = InternalProcedure(serviceName, UsersInternalServiceListProjectsMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.ListProjects, opts...)
	p = InternalProcedure(serviceName, UsersInternalServiceListProjectUsersMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.ListProjectUsers, opts...)
	p = InternalProcedure(serviceName, UsersInternalServiceListUsersMethod)
	handlers[p] = connect.NewUnaryHandler(p, svc.ListUsers, opts...)
	return "/" + serviceName + "/", routeHandlers(handlers)
}

func routeHandlers(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// UsersServiceClient is a client for the public users service.
type UsersServiceClient interface {
	CreateAPIKey(context.Context, *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error)
	ListAPIKeys(context.Context, *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error)
	UpdateAPIKey(context.Context, *connect.Request[usersv1.UpdateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error)
	DeleteAPIKey(context.Context, *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateProjectAPIKey(context.Context, *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error)
	ListProjectAPIKeys(context.Context, *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error)
	DeleteProjectAPIKey(context.Context, *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateOrganization(context.Context, *connect.Request[usersv1.CreateOrganizationRequest]) (*connect.Response[usersv1.Organization], error)
	ListOrganizations(context.Context, *connect.Request[usersv1.ListOrganizationsRequest]) (*connect.Response[usersv1.ListOrganizationsResponse], error)
	DeleteOrganization(context.Context, *connect.Request[usersv1.DeleteOrganizationRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateOrganizationUser(context.Context, *connect.Request[usersv1.CreateOrganizationUserRequest]) (*connect.Response[usersv1.OrganizationUser], error)
	ListOrganizationUsers(context.Context, *connect.Request[usersv1.ListOrganizationUsersRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error)
	DeleteOrganizationUser(context.Context, *connect.Request[usersv1.DeleteOrganizationUserRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateProject(context.Context, *connect.Request[usersv1.CreateProjectRequest]) (*connect.Response[usersv1.Project], error)
	ListProjects(context.Context, *connect.Request[usersv1.ListProjectsRequest]) (*connect.Response[usersv1.ListProjectsResponse], error)
	UpdateProject(context.Context, *connect.Request[usersv1.UpdateProjectRequest]) (*connect.Response[usersv1.Project], error)
	DeleteProject(context.Context, *connect.Request[usersv1.DeleteProjectRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	CreateProjectUser(context.Context, *connect.Request[usersv1.CreateProjectUserRequest]) (*connect.Response[usersv1.ProjectUser], error)
	ListProjectUsers(context.Context, *connect.Request[usersv1.ListProjectUsersRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error)
	DeleteProjectUser(context.Context, *connect.Request[usersv1.DeleteProjectUserRequest]) (*connect.Response[usersv1.DeleteResponse], error)
	GetUserSelf(context.Context, *connect.Request[usersv1.GetUserSelfRequest]) (*connect.Response[usersv1.User], error)
	GetUser(context.Context, *connect.Request[usersv1.GetUserRequest]) (*connect.Response[usersv1.User], error)
	ListUsers(context.Context, *connect.Request[usersv1.ListUsersRequest]) (*connect.Response[usersv1.ListUsersResponse], error)
}

// NewUsersServiceClient constructs a client for the users service. The baseURL is the
// scheme and host of the server, for example http://localhost:8080.
func NewUsersServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) UsersServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withJSON(opts, connect.ClientOption(connect.WithCodec(usersv1.JSONCodec{})))
	return &usersServiceClient{
		createAPIKey:           connect.NewClient[usersv1.CreateAPIKeyRequest, usersv1.APIKey](httpClient, baseURL+UsersServiceCreateAPIKeyProcedure, opts...),
		listAPIKeys:            connect.NewClient[usersv1.ListAPIKeysRequest, usersv1.ListAPIKeysResponse](httpClient, baseURL+UsersServiceListAPIKeysProcedure, opts...),
		updateAPIKey:           connect.NewClient[usersv1.UpdateAPIKeyRequest, usersv1.APIKey](httpClient, baseURL+UsersServiceUpdateAPIKeyProcedure, opts...),
		deleteAPIKey:           connect.NewClient[usersv1.DeleteAPIKeyRequest, usersv1.DeleteResponse](httpClient, baseURL+UsersServiceDeleteAPIKeyProcedure, opts...),
		createProjectAPIKey:    connect.NewClient[usersv1.CreateAPIKeyRequest, usersv1.APIKey](httpClient, baseURL+UsersServiceCreateProjectAPIKeyProcedure, opts...),
		listProjectAPIKeys:     connect.NewClient[usersv1.ListAPIKeysRequest, usersv1.ListAPIKeysResponse](httpClient, baseURL+UsersServiceListProjectAPIKeysProcedure, opts...),
		deleteProjectAPIKey:    connect.NewClient[usersv1.DeleteAPIKeyRequest, usersv1.DeleteResponse](httpClient, baseURL+UsersServiceDeleteProjectAPIKeyProcedure, opts...),
		createOrganization:     connect.NewClient[usersv1.CreateOrganizationRequest, usersv1.Organization](httpClient, baseURL+UsersServiceCreateOrganizationProcedure, opts...),
		listOrganizations:      connect.NewClient[usersv1.ListOrganizationsRequest, usersv1.ListOrganizationsResponse](httpClient, baseURL+UsersServiceListOrganizationsProcedure, opts...),
		deleteOrganization:     connect.NewClient[usersv1.DeleteOrganizationRequest, usersv1.DeleteResponse](httpClient, baseURL+UsersServiceDeleteOrganizationProcedure, opts...),
		createOrganizationUser: connect.NewClient[usersv1.CreateOrganizationUserRequest, usersv1.OrganizationUser](httpClient, baseURL+UsersServiceCreateOrganizationUserProcedure, opts...),
		listOrganizationUsers:  connect.NewClient[usersv1.ListOrganizationUsersRequest, usersv1.ListOrganizationUsersResponse](httpClient, baseURL+UsersServiceListOrganizationUsersProcedure, opts...),
		deleteOrganizationUser: connect.NewClient[usersv1.DeleteOrganizationUserRequest, usersv1.DeleteResponse](httpClient, baseURL+UsersServiceDeleteOrganizationUserProcedure, opts...),
		createProject:          connect.NewClient[usersv1.CreateProjectRequest, usersv1.Project](httpClient, baseURL+UsersServiceCreateProjectProcedure, opts...),
		listProjects:           connect.NewClient[usersv1.ListProjectsRequest, usersv1.ListProjectsResponse](httpClient, baseURL+UsersServiceListProjectsProcedure, opts...),
		updateProject:          connect.NewClient[usersv1.UpdateProjectRequest, usersv1.Project](httpClient, baseURL+UsersServiceUpdateProjectProcedure, opts...),
		deleteProject:          connect.NewClient[usersv1.DeleteProjectRequest, usersv1.DeleteResponse](httpClient, baseURL+UsersServiceDeleteProjectProcedure, opts...),
		createProjectUser:      connect.NewClient[usersv1.CreateProjectUserRequest, usersv1.ProjectUser](httpClient, baseURL+UsersServiceCreateProjectUserProcedure, opts...),
		listProjectUsers:       connect.NewClient[usersv1.ListProjectUsersRequest, usersv1.ListProjectUsersResponse](httpClient, baseURL+UsersServiceListProjectUsersProcedure, opts...),
		deleteProjectUser:      connect.NewClient[usersv1.DeleteProjectUserRequest, usersv1.DeleteResponse](httpClient, baseURL+UsersServiceDeleteProjectUserProcedure, opts...),
		getUserSelf:            connect.NewClient[usersv1.GetUserSelfRequest, usersv1.User](httpClient, baseURL+UsersServiceGetUserSelfProcedure, opts...),
		getUser:                connect.NewClient[usersv1.GetUserRequest, usersv1.User](httpClient, baseURL+UsersServiceGetUserProcedure, opts...),
		listUsers:              connect.NewClient[usersv1.ListUsersRequest, usersv1.ListUsersResponse](httpClient, baseURL+UsersServiceListUsersProcedure, opts...),
	}
}

type usersServiceClient struct {
	createAPIKey           *connect.Client[usersv1.CreateAPIKeyRequest, usersv1.APIKey]
	listAPIKeys            *connect.Client[usersv1.ListAPIKeysRequest, usersv1.ListAPIKeysResponse]
	updateAPIKey           *connect.Client[usersv1.UpdateAPIKeyRequest, usersv1.APIKey]
	deleteAPIKey           *connect.Client[usersv1.DeleteAPIKeyRequest, usersv1.DeleteResponse]
	createProjectAPIKey    *connect.Client[usersv1.CreateAPIKeyRequest, usersv1.APIKey]
	listProjectAPIKeys     *connect.Client[usersv1.ListAPIKeysRequest, usersv1.ListAPIKeysResponse]
	deleteProjectAPIKey    *connect.Client[usersv1.DeleteAPIKeyRequest, usersv1.DeleteResponse]
	createOrganization     *connect.Client[usersv1.CreateOrganizationRequest, usersv1.Organization]
	listOrganizations      *connect.Client[usersv1.ListOrganizationsRequest, usersv1.ListOrganizationsResponse]
	deleteOrganization     *connect.Client[usersv1.DeleteOrganizationRequest, usersv1.DeleteResponse]
	createOrganizationUser *connect.Client[usersv1.CreateOrganizationUserRequest, usersv1.OrganizationUser]
	listOrganizationUsers  *connect.Client[usersv1.ListOrganizationUsersRequest, usersv1.ListOrganizationUsersResponse]
	deleteOrganizationUser *connect.Client[usersv1.DeleteOrganizationUserRequest, usersv1.DeleteResponse]
	createProject          *connect.Client[usersv1.CreateProjectRequest, usersv1.Project]
	listProjects           *connect.Client[usersv1.ListProjectsRequest, usersv1.ListProjectsResponse]
	updateProject          *connect.Client[usersv1.UpdateProjectRequest, usersv1.Project]
	deleteProject          *connect.Client[usersv1.DeleteProjectRequest, usersv1.DeleteResponse]
	createProjectUser      *connect.Client[usersv1.CreateProjectUserRequest, usersv1.ProjectUser]
	listProjectUsers       *connect.Client[usersv1.ListProjectUsersRequest, usersv1.ListProjectUsersResponse]
	deleteProjectUser      *connect.Client[usersv1.DeleteProjectUserRequest, usersv1.DeleteResponse]
	getUserSelf            *connect.Client[usersv1.GetUserSelfRequest, usersv1.User]
	getUser                *connect.Client[usersv1.GetUserRequest, usersv1.User]
	listUsers              *connect.Client[usersv1.ListUsersRequest, usersv1.ListUsersResponse]
}

func (c *usersServiceClient) CreateAPIKey(ctx context.Context, req *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error) {
	return c.createAPIKey.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListAPIKeys(ctx context.Context, req *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error) {
	return c.listAPIKeys.CallUnary(ctx, req)
}

func (c *usersServiceClient) UpdateAPIKey(ctx context.Context, req *connect.Request[usersv1.UpdateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error) {
	return c.updateAPIKey.CallUnary(ctx, req)
}

func (c *usersServiceClient) DeleteAPIKey(ctx context.Context, req *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	return c.deleteAPIKey.CallUnary(ctx, req)
}

func (c *usersServiceClient) CreateProjectAPIKey(ctx context.Context, req *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error) {
	return c.createProjectAPIKey.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListProjectAPIKeys(ctx context.Context, req *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error) {
	return c.listProjectAPIKeys.CallUnary(ctx, req)
}

func (c *usersServiceClient) DeleteProjectAPIKey(ctx context.Context, req *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	return c.deleteProjectAPIKey.CallUnary(ctx, req)
}

func (c *usersServiceClient) CreateOrganization(ctx context.Context, req *connect.Request[usersv1.CreateOrganizationRequest]) (*connect.Response[usersv1.Organization], error) {
	return c.createOrganization.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListOrganizations(ctx context.Context, req *connect.Request[usersv1.ListOrganizationsRequest]) (*connect.Response[usersv1.ListOrganizationsResponse], error) {
	return c.listOrganizations.CallUnary(ctx, req)
}

func (c *usersServiceClient) DeleteOrganization(ctx context.Context, req *connect.Request[usersv1.DeleteOrganizationRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	return c.deleteOrganization.CallUnary(ctx, req)
}

func (c *usersServiceClient) CreateOrganizationUser(ctx context.Context, req *connect.Request[usersv1.CreateOrganizationUserRequest]) (*connect.Response[usersv1.OrganizationUser], error) {
	return c.createOrganizationUser.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListOrganizationUsers(ctx context.Context, req *connect.Request[usersv1.ListOrganizationUsersRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error) {
	return c.listOrganizationUsers.CallUnary(ctx, req)
}

func (c *usersServiceClient) DeleteOrganizationUser(ctx context.Context, req *connect.Request[usersv1.DeleteOrganizationUserRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	return c.deleteOrganizationUser.CallUnary(ctx, req)
}

func (c *usersServiceClient) CreateProject(ctx context.Context, req *connect.Request[usersv1.CreateProjectRequest]) (*connect.Response[usersv1.Project], error) {
	return c.createProject.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListProjects(ctx context.Context, req *connect.Request[usersv1.ListProjectsRequest]) (*connect.Response[usersv1.ListProjectsResponse], error) {
	return c.listProjects.CallUnary(ctx, req)
}

func (c *usersServiceClient) UpdateProject(ctx context.Context, req *connect.Request[usersv1.UpdateProjectRequest]) (*connect.Response[usersv1.Project], error) {
	return c.updateProject.CallUnary(ctx, req)
}

func (c *usersServiceClient) DeleteProject(ctx context.Context, req *connect.Request[usersv1.DeleteProjectRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	return c.deleteProject.CallUnary(ctx, req)
}

func (c *usersServiceClient) CreateProjectUser(ctx context.Context, req *connect.Request[usersv1.CreateProjectUserRequest]) (*connect.Response[usersv1.ProjectUser], error) {
	return c.createProjectUser.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListProjectUsers(ctx context.Context, req *connect.Request[usersv1.ListProjectUsersRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error) {
	return c.listProjectUsers.CallUnary(ctx, req)
}

func (c *usersServiceClient) DeleteProjectUser(ctx context.Context, req *connect.Request[usersv1.DeleteProjectUserRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	return c.deleteProjectUser.CallUnary(ctx, req)
}

func (c *usersServiceClient) GetUserSelf(ctx context.Context, req *connect.Request[usersv1.GetUserSelfRequest]) (*connect.Response[usersv1.User], error) {
	return c.getUserSelf.CallUnary(ctx, req)
}

func (c *usersServiceClient) GetUser(ctx context.Context, req *connect.Request[usersv1.GetUserRequest]) (*connect.Response[usersv1.User], error) {
	return c.getUser.CallUnary(ctx, req)
}

func (c *usersServiceClient) ListUsers(ctx context.Context, req *connect.Request[usersv1.ListUsersRequest]) (*connect.Response[usersv1.ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}

// UsersInternalServiceClient is a client for the internal tenant gateway.
type UsersInternalServiceClient interface {
	CreateUserInternal(context.Context, *connect.Request[usersv1.CreateUserInternalRequest]) (*connect.Response[usersv1.CreateUserInternalResponse], error)
	ListInternalAPIKeys(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalAPIKeysResponse], error)
	ListInternalOrganizations(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalOrganizationsResponse], error)
	ListOrganizationUsers(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error)
	ListProjects(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalProjectsResponse], error)
	ListProjectUsers(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error)
	ListUsers(context.Context, *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListUsersResponse], error)
}

// NewUsersInternalServiceClient constructs a client for the internal service published
// under serviceName, normally UsersInternalServiceName.
func NewUsersInternalServiceClient(httpClient connect.HTTPClient, baseURL, serviceName string, opts ...connect.ClientOption) UsersInternalServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withJSON(opts, connect.ClientOption(connect.WithCodec(usersv1.JSONCodec{})))
	return &usersInternalServiceClient{
		createUserInternal:        connect.NewClient[usersv1.CreateUserInternalRequest, usersv1.CreateUserInternalResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceCreateUserInternalMethod), opts...),
		listInternalAPIKeys:       connect.NewClient[usersv1.InternalListRequest, usersv1.ListInternalAPIKeysResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceListInternalAPIKeysMethod), opts...),
		listInternalOrganizations: connect.NewClient[usersv1.InternalListRequest, usersv1.ListInternalOrganizationsResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceListInternalOrganizationsMethod), opts...),
		listOrganizationUsers:     connect.NewClient[usersv1.InternalListRequest, usersv1.ListOrganizationUsersResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceListOrganizationUsersMethod), opts...),
		listProjects:              connect.NewClient[usersv1.InternalListRequest, usersv1.ListInternalProjectsResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceListProjectsMethod), opts...),
		listProjectUsers:          connect.NewClient[usersv1.InternalListRequest, usersv1.ListProjectUsersResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceListProjectUsersMethod), opts...),
		listUsers:                 connect.NewClient[usersv1.InternalListRequest, usersv1.ListUsersResponse](httpClient, baseURL+InternalProcedure(serviceName, UsersInternalServiceListUsersMethod), opts...),
	}
}

type usersInternalServiceClient struct {
	createUserInternal        *connect.Client[usersv1.CreateUserInternalRequest, usersv1.CreateUserInternalResponse]
	listInternalAPIKeys       *connect.Client[usersv1.InternalListRequest, usersv1.ListInternalAPIKeysResponse]
	listInternalOrganizations *connect.Client[usersv1.InternalListRequest, usersv1.ListInternalOrganizationsResponse]
	listOrganizationUsers     *connect.Client[usersv1.InternalListRequest, usersv1.ListOrganizationUsersResponse]
	listProjects              *connect.Client[usersv1.InternalListRequest, usersv1.ListInternalProjectsResponse]
	listProjectUsers          *connect.Client[usersv1.InternalListRequest, usersv1.ListProjectUsersResponse]
	listUsers                 *connect.Client[usersv1.InternalListRequest, usersv1.ListUsersResponse]
}

func (c *usersInternalServiceClient) CreateUserInternal(ctx context.Context, req *connect.Request[usersv1.CreateUserInternalRequest]) (*connect.Response[usersv1.CreateUserInternalResponse], error) {
	return c.createUserInternal.CallUnary(ctx, req)
}

func (c *usersInternalServiceClient) ListInternalAPIKeys(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalAPIKeysResponse], error) {
	return c.listInternalAPIKeys.CallUnary(ctx, req)
}

func (c *usersInternalServiceClient) ListInternalOrganizations(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalOrganizationsResponse], error) {
	return c.listInternalOrganizations.CallUnary(ctx, req)
}

func (c *usersInternalServiceClient) ListOrganizationUsers(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error) {
	return c.listOrganizationUsers.CallUnary(ctx, req)
}

func (c *usersInternalServiceClient) ListProjects(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalProjectsResponse], error) {
	return c.listProjects.CallUnary(ctx, req)
}

func (c *usersInternalServiceClient) ListProjectUsers(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error) {
	return c.listProjectUsers.CallUnary(ctx, req)
}

func (c *usersInternalServiceClient) ListUsers(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}
