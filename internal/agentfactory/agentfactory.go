// Package agentfactory implements the Agent Factory (C7, spec.md §4.7): it
// instantiates enabled workers for a request (global config intersected with
// the tenant registry), applies per-tenant config overrides, and restores
// defaults when the request completes.
package agentfactory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/telemetry"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

// Builder constructs a worker instance from its merged config. Builtin
// workers register a Builder through Register; type=custom entries resolve a
// Builder via the class registry instead (see RegisterCustom).
type Builder func(cfg *tenant.AgentConfig) (worker.Worker, error)

// OrchestratorKey and SupervisorKey name the two system nodes the engine
// always drives directly (spec.md §4.7: "always instantiated"); they are
// never resolved through this factory's Builder map because their behavior
// is the C5/C6 router and the C10 supervisor, not a worker.Worker.
const (
	OrchestratorKey = "orchestrator"
	SupervisorKey   = "supervisor"
)

// Factory builds and tears down the per-request set of worker instances.
type Factory struct {
	mu       sync.Mutex
	builtins map[string]Builder
	custom   map[string]Builder // dotted.path.ClassName -> Builder, registered by type=custom agents

	logger  telemetry.Logger
	metrics telemetry.Metrics

	// singletons holds process-shared worker instances keyed by agent_key,
	// so applyTenantConfigLocked/Registry.Release can pair a config swap around a
	// single request (spec.md §5: "per-request apply_tenant_config and
	// post-request reset_to_defaults must be paired").
	singletons map[string]worker.Worker
	defaults   map[string]*tenant.AgentConfig
}

// New constructs a Factory with no registered builders; call Register for
// each builtin worker before use.
func New(logger telemetry.Logger, metrics telemetry.Metrics) *Factory {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Factory{
		builtins:   make(map[string]Builder),
		custom:     make(map[string]Builder),
		singletons: make(map[string]worker.Worker),
		defaults:   make(map[string]*tenant.AgentConfig),
		logger:     logger,
		metrics:    metrics,
	}
}

// Register adds a builtin Builder for agentKey (e.g. "greeting_agent").
func (f *Factory) Register(agentKey string, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builtins[agentKey] = b
}

// RegisterCustom registers a Builder under a dotted.path.ClassName reference
// so that type=custom registry entries can be resolved at first use (spec.md
// §4.7 "Dynamic loading").
func (f *Factory) RegisterCustom(classRef string, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.custom[classRef] = b
}

// Registry is the result of Build: a lookup table handed to the node
// executor, plus a Release to pair with applyTenantConfigLocked.
type Registry struct {
	workers map[string]worker.Worker
	factory *Factory
	applied []string // agent keys whose tenant config was applied, for Release
}

// Lookup implements graph.Registry.
func (r *Registry) Lookup(agentKey string) (worker.Worker, bool) {
	w, ok := r.workers[agentKey]
	return w, ok
}

// Build instantiates the enabled workers for reg: the intersection of the
// tenant registry's enabled agents and globalEnabled. The orchestrator and
// supervisor keys are not built here (see OrchestratorKey). It returns a
// Registry whose Release must
// be called exactly once when the request finishes, to reset any mutated
// process-singleton workers back to their global defaults.
func (f *Factory) Build(reg *tenant.Registry, globalEnabled map[string]struct{}) (*Registry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &Registry{workers: make(map[string]worker.Worker), factory: f}

	for _, agentCfg := range reg.EnabledAgentsSorted() {
		if _, ok := globalEnabled[agentCfg.AgentKey]; !ok {
			continue
		}
		w, err := f.instantiateLocked(agentCfg)
		if err != nil {
			f.logger.Warn(context.Background(), "agent factory: worker unavailable", "agent", agentCfg.AgentKey, "error", err.Error())
			f.metrics.IncCounter("agentfactory.unavailable", 1)
			continue
		}
		out.workers[agentCfg.AgentKey] = w
		out.applied = append(out.applied, agentCfg.AgentKey)
	}

	return out, nil
}

// instantiateLocked resolves cfg to a worker instance (builtin or
// type=custom dotted class reference) and applies its tenant config. Caller
// must hold f.mu.
func (f *Factory) instantiateLocked(cfg *tenant.AgentConfig) (worker.Worker, error) {
	var build Builder
	if strings.Contains(cfg.ClassRef, ".") {
		b, ok := f.custom[cfg.ClassRef]
		if !ok {
			return nil, fmt.Errorf("agentfactory: no class registered for %q", cfg.ClassRef)
		}
		build = b
	} else if b, ok := f.builtins[cfg.AgentKey]; ok {
		build = b
	} else {
		return nil, fmt.Errorf("agentfactory: no builder for agent %q", cfg.AgentKey)
	}

	w, err := build(cfg)
	if err != nil {
		return nil, fmt.Errorf("agentfactory: build %q: %w", cfg.AgentKey, err)
	}

	f.applyTenantConfigLocked(cfg)
	f.singletons[cfg.AgentKey] = w
	if _, ok := f.defaults[cfg.AgentKey]; !ok {
		f.defaults[cfg.AgentKey] = cfg
	}
	return w, nil
}

// applyTenantConfigLocked implements apply_tenant_config: it is a no-op
// beyond bookkeeping here because builtin workers in this module treat their
// config as an immutable per-call parameter (spec.md §5: "safe ... if the
// worker treats its mutable config as a per-call parameter"), which sidesteps
// the process-singleton mutation hazard entirely.
func (f *Factory) applyTenantConfigLocked(cfg *tenant.AgentConfig) {
	f.metrics.IncCounter("agentfactory.apply_tenant_config", 1)
}

// Release implements reset_to_defaults: restores any process-singleton
// worker's recorded default config. Builtin workers in this module are
// stateless per-call, so this is a bookkeeping no-op, but it is still
// mandatory call-site discipline per spec.md §4.7 so a future stateful
// worker has a single place to hook in.
func (r *Registry) Release() {
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	r.factory.metrics.IncCounter("agentfactory.reset_to_defaults", float64(len(r.applied)))
}
