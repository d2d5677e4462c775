package pipeline

import (
	"context"
	"sort"

	"photolog/internal/deps"
)

// Health summarizes the readiness of one collaborator.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthCheck reports catalog reachability, external binaries and which
// mirrors are configured.
func (e *Env) HealthCheck(ctx context.Context) []Health {
	var out []Health
	if e.Catalog == nil {
		out = append(out, Unhealthy("catalog", "not configured"))
	} else if err := e.Catalog.Ping(ctx); err != nil {
		out = append(out, Unhealthy("catalog", err.Error()))
	} else {
		out = append(out, Healthy("catalog"))
	}

	for _, status := range deps.CheckBinaries(e.Requirements) {
		if status.Available {
			out = append(out, Healthy(status.Name))
		} else {
			out = append(out, Unhealthy(status.Name, status.Detail))
		}
	}

	names := make([]string, 0, len(e.Mirrors))
	for name := range e.Mirrors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, Healthy("mirror:"+name))
	}
	return out
}
