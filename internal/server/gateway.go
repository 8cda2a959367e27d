package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// Gateway exposes the users service as JSON over REST. Handlers decode the path,
// query and body into the same request messages the connect handlers receive.
type Gateway struct {
	svc   *UsersServer
	codec usersv1.JSONCodec
}

// NewGateway creates a REST gateway for svc.
func NewGateway(svc *UsersServer) *Gateway {
	return &Gateway{svc: svc}
}

// Register mounts every REST route on mux.
func (g *Gateway) Register(mux *http.ServeMux) {
	s := g.svc

	mux.Handle("POST /v1/api_keys", route(g, s.CreateAPIKey, decodeBody[usersv1.CreateAPIKeyRequest]))
	mux.Handle("GET /v1/api_keys", route(g, s.ListAPIKeys, func(r *http.Request, m *usersv1.ListAPIKeysRequest) error {
		m.OrganizationId = queryString(r, "organizationId", "organization_id")
		m.ProjectId = queryString(r, "projectId", "project_id")
		return nil
	}))
	mux.Handle("PATCH /v1/api_keys/{id}", route(g, s.UpdateAPIKey, func(r *http.Request, m *usersv1.UpdateAPIKeyRequest) error {
		if err := decodeBody(r, m); err != nil {
			return err
		}
		if m.ApiKey == nil {
			m.ApiKey = &usersv1.APIKey{}
		}
		m.ApiKey.Id = r.PathValue("id")
		m.UpdateMask = maskFromQuery(r, m.UpdateMask)
		return nil
	}))
	mux.Handle("DELETE /v1/api_keys/{id}", route(g, s.DeleteAPIKey, func(r *http.Request, m *usersv1.DeleteAPIKeyRequest) error {
		m.Id = r.PathValue("id")
		return nil
	}))

	mux.Handle("POST /v1/organizations", route(g, s.CreateOrganization, decodeBody[usersv1.CreateOrganizationRequest]))
	mux.Handle("GET /v1/organizations", route(g, s.ListOrganizations, func(r *http.Request, m *usersv1.ListOrganizationsRequest) error {
		var err error
		m.IncludeSummary, err = queryBool(r, "includeSummary", "include_summary")
		return err
	}))
	mux.Handle("DELETE /v1/organizations/{id}", route(g, s.DeleteOrganization, func(r *http.Request, m *usersv1.DeleteOrganizationRequest) error {
		m.Id = r.PathValue("id")
		return nil
	}))

	mux.Handle("POST /v1/organizations/{organizationId}/users", route(g, s.CreateOrganizationUser, func(r *http.Request, m *usersv1.CreateOrganizationUserRequest) error {
		if err := decodeBody(r, m); err != nil {
			return err
		}
		m.OrganizationId = r.PathValue("organizationId")
		return nil
	}))
	mux.Handle("GET /v1/organizations/{organizationId}/users", route(g, s.ListOrganizationUsers, func(r *http.Request, m *usersv1.ListOrganizationUsersRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		return nil
	}))
	mux.Handle("DELETE /v1/organizations/{organizationId}/users/{userId}", route(g, s.DeleteOrganizationUser, func(r *http.Request, m *usersv1.DeleteOrganizationUserRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		m.UserId = r.PathValue("userId")
		return nil
	}))

	mux.Handle("POST /v1/organizations/{organizationId}/projects", route(g, s.CreateProject, func(r *http.Request, m *usersv1.CreateProjectRequest) error {
		if err := decodeBody(r, m); err != nil {
			return err
		}
		m.OrganizationId = r.PathValue("organizationId")
		return nil
	}))
	mux.Handle("GET /v1/organizations/{organizationId}/projects", route(g, s.ListProjects, func(r *http.Request, m *usersv1.ListProjectsRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		var err error
		m.IncludeSummary, err = queryBool(r, "includeSummary", "include_summary")
		return err
	}))
	mux.Handle("PATCH /v1/organizations/{organizationId}/projects/{id}", route(g, s.UpdateProject, func(r *http.Request, m *usersv1.UpdateProjectRequest) error {
		if err := decodeBody(r, m); err != nil {
			return err
		}
		if m.Project == nil {
			m.Project = &usersv1.Project{}
		}
		m.Project.OrganizationId = r.PathValue("organizationId")
		m.Project.Id = r.PathValue("id")
		m.UpdateMask = maskFromQuery(r, m.UpdateMask)
		return nil
	}))
	mux.Handle("DELETE /v1/organizations/{organizationId}/projects/{id}", route(g, s.DeleteProject, func(r *http.Request, m *usersv1.DeleteProjectRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		m.Id = r.PathValue("id")
		return nil
	}))

	mux.Handle("POST /v1/organizations/{organizationId}/projects/{projectId}/users", route(g, s.CreateProjectUser, func(r *http.Request, m *usersv1.CreateProjectUserRequest) error {
		if err := decodeBody(r, m); err != nil {
			return err
		}
		m.OrganizationId = r.PathValue("organizationId")
		m.ProjectId = r.PathValue("projectId")
		return nil
	}))
	mux.Handle("GET /v1/organizations/{organizationId}/projects/{projectId}/users", route(g, s.ListProjectUsers, func(r *http.Request, m *usersv1.ListProjectUsersRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		m.ProjectId = r.PathValue("projectId")
		return nil
	}))
	mux.Handle("DELETE /v1/organizations/{organizationId}/projects/{projectId}/users/{userId}", route(g, s.DeleteProjectUser, func(r *http.Request, m *usersv1.DeleteProjectUserRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		m.ProjectId = r.PathValue("projectId")
		m.UserId = r.PathValue("userId")
		return nil
	}))

	mux.Handle("POST /v1/organizations/{organizationId}/projects/{projectId}/api_keys", route(g, s.CreateProjectAPIKey, func(r *http.Request, m *usersv1.CreateAPIKeyRequest) error {
		if err := decodeBody(r, m); err != nil {
			return err
		}
		m.OrganizationId = r.PathValue("organizationId")
		m.ProjectId = r.PathValue("projectId")
		return nil
	}))
	mux.Handle("GET /v1/organizations/{organizationId}/projects/{projectId}/api_keys", route(g, s.ListProjectAPIKeys, func(r *http.Request, m *usersv1.ListAPIKeysRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		m.ProjectId = r.PathValue("projectId")
		return nil
	}))
	mux.Handle("DELETE /v1/organizations/{organizationId}/projects/{projectId}/api_keys/{id}", route(g, s.DeleteProjectAPIKey, func(r *http.Request, m *usersv1.DeleteAPIKeyRequest) error {
		m.OrganizationId = r.PathValue("organizationId")
		m.ProjectId = r.PathValue("projectId")
		m.Id = r.PathValue("id")
		return nil
	}))

	mux.Handle("GET /v1/users:getSelf", route(g, s.GetUserSelf, func(*http.Request, *usersv1.GetUserSelfRequest) error { return nil }))
	mux.Handle("GET /v1/users", route(g, s.ListUsers, func(r *http.Request, m *usersv1.ListUsersRequest) error {
		var err error
		m.IncludeHidden, err = queryBool(r, "includeHidden", "include_hidden")
		return err
	}))
}

// route adapts a unary connect method to a REST handler.
func route[Req, Res any](
	g *Gateway,
	call func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	decode func(*http.Request, *Req) error,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg := new(Req)
		if err := decode(r, msg); err != nil {
			g.writeError(w, r, connect.NewError(connect.CodeInvalidArgument, err))
			return
		}

		req := connect.NewRequest(msg)
		for k, v := range r.Header {
			req.Header()[k] = v
		}

		resp, err := call(r.Context(), req)
		if err != nil {
			g.writeError(w, r, err)
			return
		}

		b, err := g.codec.Marshal(resp.Msg)
		if err != nil {
			g.writeError(w, r, connect.NewError(connect.CodeInternal, err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := connect.CodeOf(err)
	msg := err.Error()
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		msg = connectErr.Message()
	}

	if code == connect.CodeInternal || code == connect.CodeUnknown {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Gateway request failed")
	}

	b, _ := g.codec.Marshal(&gatewayError{Code: code.String(), Message: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(code))
	_, _ = w.Write(b)
}

// httpStatus follows the grpc-gateway mapping of codes to statuses.
func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeOutOfRange:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeAlreadyExists, connect.CodeAborted:
		return http.StatusConflict
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case connect.CodeCanceled:
		return 499
	case connect.CodeUnimplemented:
		return http.StatusNotImplemented
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func decodeBody[T any](r *http.Request, msg *T) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return usersv1.JSONCodec{}.Unmarshal(b, msg)
}

// queryString returns the first non-empty value among names.
func queryString(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return v
		}
	}
	return ""
}

func queryBool(r *http.Request, names ...string) (bool, error) {
	v := queryString(r, names...)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// maskFromQuery prefers a mask sent in the body and falls back to the
// comma separated update_mask query parameter.
func maskFromQuery(r *http.Request, body *fieldmaskpb.FieldMask) *fieldmaskpb.FieldMask {
	if len(body.GetPaths()) > 0 {
		return body
	}
	v := queryString(r, "update_mask", "updateMask")
	if v == "" {
		return body
	}
	mask := &fieldmaskpb.FieldMask{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			mask.Paths = append(mask.Paths, p)
		}
	}
	return mask
}
