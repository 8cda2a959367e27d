package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/usermanager"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Registry metrics
	OrganizationsCreatedTotal metric.Int64Counter
	OrganizationsDeletedTotal metric.Int64Counter
	ProjectsCreatedTotal      metric.Int64Counter
	ProjectsDeletedTotal      metric.Int64Counter
	MembershipChangesTotal    metric.Int64Counter

	// API key metrics
	APIKeysIssuedTotal  metric.Int64Counter
	APIKeysRevokedTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal metric.Int64Counter

	// Internal gateway metrics
	TenantBootstrapsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.OrganizationsCreatedTotal, _ = meter.Int64Counter(
		"usermanager.organizations.created.total",
		metric.WithDescription("Total number of organizations created"),
		metric.WithUnit("{organization}"),
	)

	m.OrganizationsDeletedTotal, _ = meter.Int64Counter(
		"usermanager.organizations.deleted.total",
		metric.WithDescription("Total number of organizations deleted"),
		metric.WithUnit("{organization}"),
	)

	m.ProjectsCreatedTotal, _ = meter.Int64Counter(
		"usermanager.projects.created.total",
		metric.WithDescription("Total number of projects created"),
		metric.WithUnit("{project}"),
	)

	m.ProjectsDeletedTotal, _ = meter.Int64Counter(
		"usermanager.projects.deleted.total",
		metric.WithDescription("Total number of projects deleted"),
		metric.WithUnit("{project}"),
	)

	m.MembershipChangesTotal, _ = meter.Int64Counter(
		"usermanager.memberships.changes.total",
		metric.WithDescription("Total number of organization and project membership changes"),
		metric.WithUnit("{change}"),
	)

	m.APIKeysIssuedTotal, _ = meter.Int64Counter(
		"usermanager.api_keys.issued.total",
		metric.WithDescription("Total number of API keys issued"),
		metric.WithUnit("{key}"),
	)

	m.APIKeysRevokedTotal, _ = meter.Int64Counter(
		"usermanager.api_keys.revoked.total",
		metric.WithDescription("Total number of API keys revoked"),
		metric.WithUnit("{key}"),
	)

	m.AuthFailuresTotal, _ = meter.Int64Counter(
		"usermanager.auth.failures.total",
		metric.WithDescription("Total number of rejected credentials"),
		metric.WithUnit("{request}"),
	)

	m.TenantBootstrapsTotal, _ = meter.Int64Counter(
		"usermanager.tenants.bootstraps.total",
		metric.WithDescription("Total number of users bootstrapped through the internal gateway"),
		metric.WithUnit("{user}"),
	)

	return m
}

// RecordAuthFailure counts a rejected credential by kind.
func (m *Metrics) RecordAuthFailure(reason string) {
	m.AuthFailuresTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordMembershipChange counts a membership add or remove at org or project scope.
func (m *Metrics) RecordMembershipChange(ctx context.Context, scope, op string) {
	m.MembershipChangesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("op", op),
	))
}
