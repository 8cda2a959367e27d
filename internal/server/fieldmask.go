package server

import (
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// Update paths accepted by UpdateProject, keyed by every accepted spelling.
var projectMaskPaths = map[string]string{
	"title":                "title",
	"kubernetes_namespace": "kubernetes_namespace",
	"kubernetesNamespace":  "kubernetes_namespace",
	"assignments":          "assignments",
}

// Update paths accepted by UpdateAPIKey.
var apiKeyMaskPaths = map[string]string{
	"name":                        "name",
	"excluded_from_rate_limiting": "excluded_from_rate_limiting",
	"excludedFromRateLimiting":    "excluded_from_rate_limiting",
}

var immutableMaskPaths = map[string]struct{}{
	"id":              {},
	"organization_id": {},
	"organizationId":  {},
	"project_id":      {},
	"projectId":       {},
	"secret":          {},
	"created_at":      {},
	"createdAt":       {},
}

// normalizeMask resolves the paths of mask against allowed and returns the
// canonical, sorted, de-duplicated set.
func normalizeMask(mask *fieldmaskpb.FieldMask, allowed map[string]string) ([]string, error) {
	if len(mask.GetPaths()) == 0 {
		return nil, invalidArgument("update mask is required")
	}

	canonical := &fieldmaskpb.FieldMask{}
	for _, p := range mask.GetPaths() {
		c, ok := allowed[p]
		if !ok {
			if _, immutable := immutableMaskPaths[p]; immutable {
				return nil, invalidArgument("field %q is immutable", p)
			}
			return nil, invalidArgument("unknown update mask path %q", p)
		}
		canonical.Paths = append(canonical.Paths, c)
	}
	canonical.Normalize()

	return canonical.GetPaths(), nil
}
