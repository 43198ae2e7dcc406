// Package router decides where a request executes. Decisions are pure: the
// router reads the loaded set and never loads, unloads or calls anything.
package router

import (
	"strings"

	"agentcore/pkg/types"
)

// DefaultModelsEndpoint is the base of remote route endpoints.
const DefaultModelsEndpoint = "https://openrouter.ai/api/v1/models"

const (
	localPerformance  = 1.0
	remotePerformance = 0.8
	remoteCallCost    = 0.001
)

// Route is either Local or Remote.
type Route interface {
	Kind() string
	isRoute()
}

// Local runs on the resident engine.
type Local struct {
	Model types.LocalModelInfo
}

// Remote runs against the remote endpoint.
type Remote struct {
	Endpoint string
}

func (Local) isRoute()  {}
func (Remote) isRoute() {}

func (Local) Kind() string  { return "local" }
func (Remote) Kind() string { return "remote" }

// LoadedSet is a read-only view of the models registered as loaded.
type LoadedSet interface {
	LoadedModel(id string) (types.LocalModelInfo, bool)
}

// Router holds a non-owning view of the loaded set.
type Router struct {
	loaded   LoadedSet
	endpoint string
}

// New returns a Router. An empty modelsEndpoint selects DefaultModelsEndpoint.
func New(loaded LoadedSet, modelsEndpoint string) *Router {
	if modelsEndpoint == "" {
		modelsEndpoint = DefaultModelsEndpoint
	}
	return &Router{loaded: loaded, endpoint: strings.TrimRight(modelsEndpoint, "/")}
}

// DecideRoute picks Local when preferLocal is set and modelID is loaded,
// Remote otherwise.
func (r *Router) DecideRoute(modelID string, preferLocal bool) Route {
	if preferLocal && r.loaded != nil {
		if info, ok := r.loaded.LoadedModel(modelID); ok {
			return Local{Model: info}
		}
	}
	return Remote{Endpoint: r.endpoint + "/" + modelID}
}

// EvaluateRoutePerformance is a fixed weight in [0,1], not a measurement.
func EvaluateRoutePerformance(route Route) float64 {
	switch route.(type) {
	case Local:
		return localPerformance
	case Remote:
		return remotePerformance
	}
	return 0
}

// CostEstimate is the per-call cost in currency units.
func CostEstimate(route Route) float64 {
	switch route.(type) {
	case Remote:
		return remoteCallCost
	}
	return 0
}
