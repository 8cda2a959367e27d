package usersv1

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}
	require.Equal(t, "json", codec.Name())

	t.Run("camel case field names", func(t *testing.T) {
		b, err := codec.Marshal(&CreateProjectUserRequest{
			OrganizationId: "org-1",
			ProjectId:      "proj_1",
			UserId:         "alice",
			Role:           ProjectRole_PROJECT_ROLE_MEMBER,
		})
		require.NoError(t, err)
		require.JSONEq(t, `{"organizationId":"org-1","projectId":"proj_1","userId":"alice","role":"PROJECT_ROLE_MEMBER"}`, string(b))
	})

	t.Run("update mask paths", func(t *testing.T) {
		var req UpdateProjectRequest
		require.NoError(t, codec.Unmarshal([]byte(`{"project":{"id":"proj_1","title":"x"},"updateMask":{"paths":["title"]}}`), &req))
		require.Equal(t, "x", req.Project.Title)
		require.Equal(t, []string{"title"}, req.UpdateMask.GetPaths())

		b, err := codec.Marshal(&UpdateProjectRequest{UpdateMask: &fieldmaskpb.FieldMask{Paths: []string{"title"}}})
		require.NoError(t, err)
		require.JSONEq(t, `{"updateMask":{"paths":["title"]}}`, string(b))
	})

	t.Run("delete response keeps deleted flag", func(t *testing.T) {
		b, err := codec.Marshal(&DeleteResponse{Id: "key_1", Object: ObjectAPIKeyDeleted, Deleted: true})
		require.NoError(t, err)
		require.JSONEq(t, `{"id":"key_1","object":"users.api_key","deleted":true}`, string(b))
	})

	t.Run("empty body", func(t *testing.T) {
		var req ListOrganizationsRequest
		require.NoError(t, codec.Unmarshal(nil, &req))
		require.False(t, req.IncludeSummary)
	})
}
