package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider gives access to the Prometheus registry holding planner
// metrics, so embedders can serve it from their own /metrics endpoint.
type RegistryProvider interface {
	// Registry returns the registry the planner registers its collectors on.
	Registry() *prometheus.Registry
}
