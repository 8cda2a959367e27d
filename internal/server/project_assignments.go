package server

import (
	"regexp"

	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/models"
)

const dns1123LabelMaxLength = 63

var dns1123Label = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// validateNamespace checks that ns is a valid Kubernetes namespace name.
func validateNamespace(ns string) error {
	if ns == "" {
		return invalidArgument("kubernetes namespace is required")
	}
	if len(ns) > dns1123LabelMaxLength {
		return invalidArgument("kubernetes namespace %q must be no more than %d characters", ns, dns1123LabelMaxLength)
	}
	if !dns1123Label.MatchString(ns) {
		return invalidArgument("kubernetes namespace %q must consist of lower case alphanumeric characters or '-', and must start and end with an alphanumeric character", ns)
	}
	return nil
}

// buildAssignments accepts either a bare namespace or a list of assignments. A
// namespace becomes a single assignment with an empty cluster id.
func buildAssignments(namespace string, as []*usersv1.ProjectAssignment) (string, []models.ProjectAssignment, error) {
	switch {
	case namespace != "" && len(as) > 0:
		return "", nil, invalidArgument("only one of kubernetes namespace or assignments may be set")
	case namespace == "" && len(as) == 0:
		return "", nil, invalidArgument("kubernetes namespace or assignments is required")
	case namespace != "":
		if err := validateNamespace(namespace); err != nil {
			return "", nil, err
		}
		return namespace, []models.ProjectAssignment{{Namespace: namespace}}, nil
	}

	assignments := fromAssignmentsProto(as)
	if err := validateAssignments(assignments); err != nil {
		return "", nil, err
	}
	return "", assignments, nil
}

type clusterNamespace struct {
	clusterID string
	namespace string
}

// validateAssignments rejects bad namespaces, a repeated (cluster, namespace)
// pair, and repeated node selector keys within one assignment.
func validateAssignments(as []models.ProjectAssignment) error {
	if len(as) == 0 {
		return invalidArgument("at least one assignment is required")
	}

	seen := make(map[clusterNamespace]struct{}, len(as))
	for _, a := range as {
		if err := validateNamespace(a.Namespace); err != nil {
			return err
		}

		k := clusterNamespace{clusterID: a.ClusterID, namespace: a.Namespace}
		if _, ok := seen[k]; ok {
			return invalidArgument("duplicate assignment for cluster %q and namespace %q", a.ClusterID, a.Namespace)
		}
		seen[k] = struct{}{}

		keys := make(map[string]struct{}, len(a.NodeSelector))
		for _, ns := range a.NodeSelector {
			if ns.Key == "" {
				return invalidArgument("node selector key is required")
			}
			if _, ok := keys[ns.Key]; ok {
				return invalidArgument("duplicate node selector key %q in assignment for namespace %q", ns.Key, a.Namespace)
			}
			keys[ns.Key] = struct{}{}
		}
	}
	return nil
}

// projectHasNamespace reports whether the project schedules into ns.
func projectHasNamespace(p *models.Project, ns string) bool {
	if p.KubernetesNamespace == ns {
		return true
	}
	for _, a := range p.Assignments {
		if a.Namespace == ns {
			return true
		}
	}
	return false
}
