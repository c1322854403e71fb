// Package infra compiles a manifest into an infrastructure plan: the set
// of provisioning-module invocations, their input variables and the
// dependency order between them.
package infra

import (
	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/naming"
)

// Module names. These double as terraform -target addresses via Target().
const (
	ModuleNetwork = "network"
	ModuleCluster = "cluster"
	ModuleRDS     = "rds"
	ModuleMQ      = "mq"
	ModuleRedis   = "redis"
	ModuleMSK     = "msk"
)

// Cluster and network defaults, matching the provisioning modules'
// variable defaults.
const (
	DefaultVPCCIDR           = "10.0.0.0/16"
	DefaultKubernetesVersion = "1.27"
	DefaultNodeMin           = 1
	DefaultNodeMax           = 3
)

// DefaultNodeInstanceTypes is the default worker node sizing.
var DefaultNodeInstanceTypes = []string{"t3.medium"}

// ModuleInvocation is one provisioning module activation.
type ModuleInvocation struct {
	// Name identifies the module, e.g. "rds".
	Name string

	// Source is the module source path within the provisioning root.
	Source string

	// Variables are the module's input variables.
	Variables map[string]any

	// DependsOn names modules that must complete first.
	DependsOn []string
}

// Target returns the provisioning engine address for targeted operations.
func (m *ModuleInvocation) Target() string {
	return "module." + m.Name
}

// AccessPolicy is a workload-to-dependency access binding.
type AccessPolicy struct {
	// Name identifies the policy, e.g. "rds-read-write".
	Name string

	// Module is the dependency module the policy grants access to.
	Module string

	// Tier is the access tier: "read", "read-write" or "full-access".
	Tier string

	// Enabled controls whether the binding is provisioned. The
	// full-access tier exists but ships disabled; enabling it is a
	// deployment-time choice, never inferred from the manifest.
	Enabled bool
}

// Plan is the compiled infrastructure plan for one environment.
type Plan struct {
	Project string
	EnvID   string
	Region  string

	// Modules in a valid sequential order. The DAG carries the real
	// ordering constraints; this slice is its deterministic flattening.
	Modules []ModuleInvocation

	// Policies are the access bindings, one read-write per dependency
	// plus a disabled full-access variant each.
	Policies []AccessPolicy

	// DependencyTypes lists the manifest dependency types in declaration
	// order, as fed to the provisioning root.
	DependencyTypes []string

	graph *Graph
}

// Graph returns the plan's dependency DAG.
func (p *Plan) Graph() *Graph {
	return p.graph
}

// Module returns the named module invocation, or nil.
func (p *Plan) Module(name string) *ModuleInvocation {
	for i := range p.Modules {
		if p.Modules[i].Name == name {
			return &p.Modules[i]
		}
	}
	return nil
}

// Compile builds the infrastructure plan for a manifest. Two dependencies
// of the same type are rejected: one module instance per type per
// environment. No partial plan is ever returned.
func Compile(m *manifest.Manifest, envID, region string) (*Plan, error) {
	p := &Plan{
		Project: m.Name,
		EnvID:   envID,
		Region:  region,
	}

	p.Modules = append(p.Modules,
		ModuleInvocation{
			Name:   ModuleNetwork,
			Source: "./modules/network",
			Variables: map[string]any{
				"vpc_cidr": DefaultVPCCIDR,
			},
		},
		ModuleInvocation{
			Name:   ModuleCluster,
			Source: "./modules/eks",
			Variables: map[string]any{
				"k8s_version":        DefaultKubernetesVersion,
				"eks_instance_types": DefaultNodeInstanceTypes,
				"eks_node_min":       DefaultNodeMin,
				"eks_node_max":       DefaultNodeMax,
			},
			DependsOn: []string{ModuleNetwork},
		},
	)

	seen := make(map[manifest.DependencyType]bool)
	for i := range m.Dependencies {
		dep := &m.Dependencies[i]

		if seen[dep.Type] {
			return nil, errors.NewPlanError(
				"duplicate dependency type %q: one module instance per type per environment", dep.Type)
		}
		seen[dep.Type] = true

		mod, err := dependencyModule(dep, m.Name, envID)
		if err != nil {
			return nil, err
		}

		p.Modules = append(p.Modules, mod)
		p.Policies = append(p.Policies,
			AccessPolicy{
				Name:    mod.Name + "-read-write",
				Module:  mod.Name,
				Tier:    "read-write",
				Enabled: true,
			},
			AccessPolicy{
				Name:    mod.Name + "-full-access",
				Module:  mod.Name,
				Tier:    "full-access",
				Enabled: false,
			},
		)
		p.DependencyTypes = append(p.DependencyTypes, string(dep.Type))
	}

	graph, err := buildGraph(p)
	if err != nil {
		return nil, err
	}
	p.graph = graph

	return p, nil
}

func dependencyModule(dep *manifest.Dependency, project, envID string) (ModuleInvocation, error) {
	switch dep.Type {
	case manifest.DependencyDatabase:
		return ModuleInvocation{
			Name:   ModuleRDS,
			Source: "./modules/rds",
			Variables: map[string]any{
				"db_identifier":        naming.DatabaseIdentifier(project, envID),
				"db_engine":            dep.Database.Provider,
				"db_engine_version":    dep.Database.Version,
				"db_instance_class":    dep.Database.InstanceClass,
				"db_allocated_storage": dep.Database.StorageGB,
			},
			DependsOn: []string{ModuleCluster},
		}, nil

	case manifest.DependencyQueue:
		return ModuleInvocation{
			Name:   ModuleMQ,
			Source: "./modules/mq",
			Variables: map[string]any{
				"mq_engine_type":    dep.Queue.Provider,
				"mq_engine_version": dep.Queue.Version,
				"mq_instance_type":  dep.Queue.InstanceClass,
			},
			DependsOn: []string{ModuleCluster},
		}, nil

	case manifest.DependencyCache:
		return ModuleInvocation{
			Name:   ModuleRedis,
			Source: "./modules/redis",
			Variables: map[string]any{
				"redis_node_type":        dep.Cache.NodeType,
				"redis_engine_version":   dep.Cache.Version,
				"redis_cluster_size":     dep.Cache.ClusterSize,
				"redis_auth_enabled":     dep.Cache.AuthEnabled == nil || *dep.Cache.AuthEnabled,
				"redis_multi_az_enabled": dep.Cache.MultiAZ,
			},
			DependsOn: []string{ModuleCluster},
		}, nil

	case manifest.DependencyStream:
		return ModuleInvocation{
			Name:   ModuleMSK,
			Source: "./modules/msk",
			Variables: map[string]any{
				"msk_kafka_version": dep.Stream.Version,
				"msk_broker_count":  dep.Stream.BrokerCount,
				"msk_broker_type":   dep.Stream.BrokerType,
				"msk_volume_size":   dep.Stream.VolumeGB,
			},
			DependsOn: []string{ModuleCluster},
		}, nil

	default:
		return ModuleInvocation{}, errors.NewPlanError("unknown dependency type %q", dep.Type)
	}
}

// Variables flattens the plan into the provisioning root's input document,
// the content of terraform.tfvars.json.
func (p *Plan) Variables() map[string]any {
	vars := map[string]any{
		"project_name": p.Project,
		"env_id":       p.EnvID,
		"region":       p.Region,
		"dependencies": append([]string{}, p.DependencyTypes...),
	}

	for _, mod := range p.Modules {
		for k, v := range mod.Variables {
			vars[k] = v
		}
	}

	return vars
}
