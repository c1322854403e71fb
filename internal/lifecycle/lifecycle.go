// Package lifecycle orchestrates the up and down flows: manifest in,
// running environment out, and back again. It owns the environment state
// machine and is the only package that talks to the provisioning engine,
// the cluster applier and the registry at the same time.
package lifecycle

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/buildandburn/bb/internal/config"
	"github.com/buildandburn/bb/internal/kubernetes"
	"github.com/buildandburn/bb/internal/registry"
	"github.com/buildandburn/bb/internal/terraform"
)

// Applier is the slice of the cluster client the orchestrator needs.
// Satisfied by kubernetes.Client; tests substitute a fake.
type Applier interface {
	Apply(ctx context.Context, resources []*unstructured.Unstructured, opts kubernetes.ApplyOptions) (*kubernetes.ApplyResult, error)
	Delete(ctx context.Context, resources []*unstructured.Unstructured) (*kubernetes.DeleteResult, error)
	EnsureNamespace(ctx context.Context, name string, labels map[string]string) error
	DeleteNamespace(ctx context.Context, name string, timeout time.Duration) error
}

// EngineFactory builds a provisioning engine rooted in workDir.
type EngineFactory func(binary, workDir string) (terraform.Engine, error)

// ApplierFactory builds a cluster applier from a kubeconfig file.
type ApplierFactory func(kubeconfig string) (Applier, error)

// Orchestrator drives environment lifecycles against a registry.
type Orchestrator struct {
	store      *registry.Store
	cfg        *config.Config
	newEngine  EngineFactory
	newApplier ApplierFactory
	now        func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithEngineFactory replaces the provisioning engine constructor.
func WithEngineFactory(f EngineFactory) Option {
	return func(o *Orchestrator) { o.newEngine = f }
}

// WithApplierFactory replaces the cluster applier constructor.
func WithApplierFactory(f ApplierFactory) Option {
	return func(o *Orchestrator) { o.newApplier = f }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New builds an orchestrator over store with the given configuration.
func New(store *registry.Store, cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: store,
		cfg:   cfg,
		newEngine: func(binary, workDir string) (terraform.Engine, error) {
			return terraform.NewExecEngine(binary, workDir)
		},
		newApplier: func(kubeconfig string) (Applier, error) {
			return kubernetes.NewClient(kubernetes.ClientOptions{Kubeconfig: kubeconfig})
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}
