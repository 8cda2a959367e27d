package models

import (
	"slices"
	"time"
)

// Project is a unit of resource allocation nested under one organization.
type Project struct {
	ProjectID           string
	TenantID            string
	OrganizationID      string // immutable after creation
	Title               string // unique per tenant
	KubernetesNamespace string
	Assignments         []ProjectAssignment
	IsDefault           bool
	CreatedAt           time.Time
}

// ProjectAssignment describes a cluster namespace and queue a project may schedule work onto.
type ProjectAssignment struct {
	ClusterID    string         `json:"clusterId"`
	Namespace    string         `json:"namespace"`
	QueueName    string         `json:"queueName,omitempty"`
	NodeSelector []NodeSelector `json:"nodeSelector,omitempty"`
}

// NodeSelector is a single key/value scheduling constraint.
type NodeSelector struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProjectUser is the membership edge between a user and a project.
type ProjectUser struct {
	ProjectID      string
	OrganizationID string // always equal to the parent project's organization
	UserID         string
	Role           ProjectRole
	CreatedAt      time.Time
}

// ProjectSummary is computed on demand and never persisted.
type ProjectSummary struct {
	UserCount int
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	c := *p
	c.Assignments = CloneAssignments(p.Assignments)
	return &c
}

// CloneAssignments deep copies a list of assignments.
func CloneAssignments(as []ProjectAssignment) []ProjectAssignment {
	if as == nil {
		return nil
	}
	out := make([]ProjectAssignment, len(as))
	for i, a := range as {
		out[i] = a
		out[i].NodeSelector = slices.Clone(a.NodeSelector)
	}
	return out
}
