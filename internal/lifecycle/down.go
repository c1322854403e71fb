package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/buildandburn/bb/internal/infra"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/output"
	"github.com/buildandburn/bb/internal/registry"
	"github.com/buildandburn/bb/internal/workload"
)

// DownOptions parameterizes one down run.
type DownOptions struct {
	// EnvID names the environment to destroy.
	EnvID string

	// Force keeps tearing down past individual failures, destroying each
	// provisioning module separately in reverse dependency order, and
	// reports every failure at the end.
	Force bool

	// KeepLocal retains the environment directory and record after the
	// cloud resources are gone.
	KeepLocal bool
}

// Down destroys an environment: workload first, then infrastructure in
// reverse dependency order, then the local record unless kept.
func (o *Orchestrator) Down(ctx context.Context, opts DownOptions) error {
	record, err := o.store.Get(opts.EnvID)
	if err != nil {
		return err
	}

	lock, err := registry.AcquireLock(o.store.EnvDir(record.EnvID))
	if err != nil {
		return err
	}
	defer lock.Release()

	logger := output.EnvLogger(record.EnvID)
	logger.Info("destroying environment", "project", record.ProjectName)

	record.State = registry.StateDestroying
	if err := o.store.Save(record); err != nil {
		return err
	}

	// Workload teardown is best effort. The cluster is destroyed right
	// after; an unreachable cluster must not block the burn.
	if err := o.deleteWorkload(ctx, record); err != nil {
		if opts.Force {
			logger.Warn("workload deletion failed, continuing", "error", err)
		} else {
			return o.fail(record, "Destroying", err)
		}
	}

	if err := o.destroyInfra(ctx, record, opts.Force); err != nil {
		return o.fail(record, "Destroying", err)
	}

	now := o.now().UTC()
	record.State = registry.StateDestroyed
	record.DestroyedAt = &now

	if opts.KeepLocal {
		if err := o.store.Save(record); err != nil {
			return err
		}
		logger.Info("environment destroyed, local state kept", "dir", record.WorkDir)
		return nil
	}

	if err := o.store.Remove(record.EnvID); err != nil {
		return err
	}
	logger.Info("environment destroyed")
	return nil
}

// deleteWorkload removes the applied resources and the namespace, using
// the render persisted at up time.
func (o *Orchestrator) deleteWorkload(ctx context.Context, record *registry.Record) error {
	if record.KubeconfigPath == "" || record.Namespace == "" {
		return nil
	}
	if _, err := os.Stat(record.KubeconfigPath); err != nil {
		output.Warn("kubeconfig missing, skipping workload deletion", "env_id", record.EnvID)
		return nil
	}

	applier, err := o.newApplier(record.KubeconfigPath)
	if err != nil {
		return err
	}

	if record.RenderDir != "" {
		raw, err := os.ReadFile(filepath.Join(record.RenderDir, renderFileName))
		if err == nil {
			resources, decErr := workload.DecodeDocuments(raw)
			if decErr != nil {
				return decErr
			}
			result, delErr := applier.Delete(ctx, resources)
			if delErr != nil {
				return delErr
			}
			output.Info("workload resources removed", "deleted", result.Deleted, "missing", result.NotFound)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	return applier.DeleteNamespace(ctx, record.Namespace, namespaceWaitLimit)
}

// destroyInfra burns the provisioned infrastructure. The normal path is
// a single destroy; force walks the dependency graph backwards with
// targeted destroys and aggregates every failure.
func (o *Orchestrator) destroyInfra(ctx context.Context, record *registry.Record, force bool) error {
	if record.TerraformDir == "" {
		return nil
	}
	if _, err := os.Stat(record.TerraformDir); err != nil {
		output.Warn("engine directory missing, skipping destroy", "env_id", record.EnvID)
		return nil
	}

	engine, err := o.newEngine(o.cfg.TerraformBinary, record.TerraformDir)
	if err != nil {
		return err
	}

	if !force {
		return output.RunWithSpinner(ctx, func() error {
			return engine.Destroy(ctx)
		}, output.WithTitle("Destroying infrastructure..."))
	}

	plan, err := o.planFromSnapshot(record)
	if err != nil {
		// Without a graph there is nothing to target; fall back to one
		// full destroy attempt.
		output.Warn("cannot rebuild dependency graph, destroying untargeted", "error", err)
		return engine.Destroy(ctx)
	}

	// Targeted destroys run one at a time: the engine serializes on its
	// state lock anyway. Failures are collected instead of aborting the
	// walk, so every module gets its destroy attempt.
	var mu sync.Mutex
	var errs []error
	walkErr := plan.Graph().WalkReverse(ctx, 1, func(ctx context.Context, node *infra.Node) error {
		if node.Kind != infra.NodeModule {
			return nil
		}
		target := plan.Module(node.ID).Target()
		if err := engine.Destroy(ctx, target); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("destroying %s: %w", target, err))
			mu.Unlock()
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return stderrors.Join(errs...)
}

// planFromSnapshot recompiles the infrastructure plan from the manifest
// the environment was built with.
func (o *Orchestrator) planFromSnapshot(record *registry.Record) (*infra.Plan, error) {
	if record.ManifestSnapshot == "" {
		return nil, fmt.Errorf("record has no manifest snapshot")
	}

	m, err := manifest.Parse([]byte(record.ManifestSnapshot))
	if err != nil {
		return nil, err
	}

	return infra.Compile(m, record.EnvID, record.Region)
}
