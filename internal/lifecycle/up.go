package lifecycle

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/infra"
	"github.com/buildandburn/bb/internal/kubernetes"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/naming"
	"github.com/buildandburn/bb/internal/output"
	"github.com/buildandburn/bb/internal/registry"
	"github.com/buildandburn/bb/internal/terraform"
	"github.com/buildandburn/bb/internal/workload"
)

// UpOptions parameterizes one up run.
type UpOptions struct {
	// ManifestPath is the manifest file to build from.
	ManifestPath string

	// EnvID pins the environment id instead of generating one. An id
	// that already exists in the registry is a hard failure.
	EnvID string

	// DryRun compiles and renders everything, prints what would change,
	// and touches neither the registry nor the cloud.
	DryRun bool
}

const (
	renderFileName     = "resources.yaml"
	namespaceWaitLimit = 2 * time.Minute
)

// Up builds an environment from a manifest: validate, provision, render,
// apply, record. On failure past allocation the working directory is
// preserved and the record is marked failed.
func (o *Orchestrator) Up(ctx context.Context, opts UpOptions) (*registry.Record, error) {
	raw, err := os.ReadFile(opts.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, err
	}

	region := m.Region
	if region == "" {
		region = o.cfg.Region
	}

	envID := opts.EnvID
	if envID == "" {
		envID = registry.NewEnvID()
	}
	logger := output.EnvLogger(envID)

	// Everything that can fail on input alone fails here, before any
	// directory, cloud or cluster mutation.
	plan, err := infra.Compile(m, envID, region)
	if err != nil {
		return nil, err
	}
	if _, err := workload.Compile(m, envID, nil); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(opts.ManifestPath)

	if opts.DryRun {
		return nil, o.dryRun(ctx, m, plan, envID, baseDir)
	}

	if _, err := o.store.Allocate(envID); err != nil {
		return nil, err
	}
	envDir := o.store.EnvDir(envID)

	lock, err := registry.AcquireLock(envDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	record := &registry.Record{
		EnvID:            envID,
		ProjectName:      m.Name,
		Region:           region,
		State:            registry.StateInitialized,
		CreatedAt:        o.now().UTC(),
		Namespace:        naming.Namespace(m.Name),
		ManifestSnapshot: string(raw),
		WorkDir:          envDir,
		TerraformDir:     filepath.Join(envDir, "terraform"),
	}
	if err := o.store.Save(record); err != nil {
		return nil, err
	}

	logger.Info("creating environment", "project", m.Name, "region", region)

	outputs, err := o.provision(ctx, record, plan, logger)
	if err != nil {
		return record, o.fail(record, "Provisioning", err)
	}

	values := placeholderValues(outputs, m.Name)
	if err := verifyOutputs(m, values); err != nil {
		return record, o.fail(record, "Provisioning", err)
	}
	record.Outputs = recordOutputs(outputs, values)

	kubeconfigPath, err := o.writeKubeconfig(envDir, outputs)
	if err != nil {
		return record, o.fail(record, "Provisioning", err)
	}
	record.KubeconfigPath = kubeconfigPath

	set, err := o.renderWorkload(ctx, m, envID, baseDir, values)
	if err != nil {
		return record, o.fail(record, "Rendering", err)
	}

	renderDir := filepath.Join(envDir, "render")
	if err := writeRender(renderDir, set); err != nil {
		return record, o.fail(record, "Rendering", err)
	}
	record.RenderDir = renderDir

	if err := o.apply(ctx, m, envID, kubeconfigPath, set, logger); err != nil {
		return record, o.fail(record, "Applying", err)
	}

	record.State = registry.StateReady
	if err := o.store.Save(record); err != nil {
		return record, err
	}

	logger.Info("environment ready", "namespace", set.Namespace)
	printAccessSummary(m, record)

	return record, nil
}

// provision runs the engine through init, plan and apply and returns its
// outputs.
func (o *Orchestrator) provision(ctx context.Context, record *registry.Record, plan *infra.Plan, logger *log.Logger) (terraform.Outputs, error) {
	modulesDir, err := o.modulesDir()
	if err != nil {
		return nil, err
	}

	if err := terraform.CopyTree(modulesDir, record.TerraformDir); err != nil {
		return nil, fmt.Errorf("staging provisioning modules: %w", err)
	}
	if err := terraform.WriteVariables(record.TerraformDir, plan.Variables()); err != nil {
		return nil, err
	}
	if err := terraform.WriteBackendOverride(record.TerraformDir); err != nil {
		return nil, err
	}

	engine, err := o.newEngine(o.cfg.TerraformBinary, record.TerraformDir)
	if err != nil {
		return nil, err
	}

	record.State = registry.StateProvisioning
	if err := o.store.Save(record); err != nil {
		return nil, err
	}

	logger.Info("provisioning infrastructure", "modules", len(plan.Modules))

	if err := output.RunWithSpinner(ctx, func() error {
		if err := engine.Init(ctx); err != nil {
			return err
		}
		if err := engine.Plan(ctx); err != nil {
			return err
		}
		return engine.Apply(ctx)
	}, output.WithTitle("Provisioning infrastructure...")); err != nil {
		return nil, err
	}

	return engine.Outputs(ctx)
}

// renderWorkload compiles the final documents, preferring authored
// sources over generation.
func (o *Orchestrator) renderWorkload(ctx context.Context, m *manifest.Manifest, envID, baseDir string, values map[string]string) (*workload.ResourceSet, error) {
	src, err := workload.SelectSource(m, baseDir)
	if err != nil {
		return nil, err
	}
	if src != nil {
		return workload.CompileFromSource(ctx, src, m, values)
	}
	return workload.Compile(m, envID, values)
}

// apply pushes the resource set, recovering exactly once from the known
// namespace-ownership conflict by recreating the namespace.
func (o *Orchestrator) apply(ctx context.Context, m *manifest.Manifest, envID, kubeconfig string, set *workload.ResourceSet, logger *log.Logger) error {
	applier, err := o.newApplier(kubeconfig)
	if err != nil {
		return err
	}

	labels := workload.EnvironmentLabels(m.Name, envID)
	if err := applier.EnsureNamespace(ctx, set.Namespace, labels); err != nil {
		return err
	}

	result, err := applier.Apply(ctx, set.Items, kubernetes.ApplyOptions{})
	if err != nil {
		var aerr *errors.ApplyError
		if !stderrors.As(err, &aerr) || !aerr.OwnershipConflict {
			return err
		}

		logger.Warn("namespace has conflicting ownership metadata, recreating", "namespace", set.Namespace)
		if err := applier.DeleteNamespace(ctx, set.Namespace, namespaceWaitLimit); err != nil {
			return err
		}
		if err := applier.EnsureNamespace(ctx, set.Namespace, labels); err != nil {
			return err
		}
		result, err = applier.Apply(ctx, set.Items, kubernetes.ApplyOptions{})
		if err != nil {
			return err
		}
	}

	for _, status := range result.Statuses {
		output.Println(output.FormatResourceLine(status.Kind, status.Namespace, status.Name, status.Status))
	}
	return nil
}

// fail marks the record failed, keeps the working directory for
// inspection and wraps the error with the stage it died in.
func (o *Orchestrator) fail(record *registry.Record, stage string, err error) error {
	record.State = registry.StateFailed
	if saveErr := o.store.Save(record); saveErr != nil {
		output.Warn("could not persist failure state", "env_id", record.EnvID, "error", saveErr)
	}

	return &errors.StageError{Stage: stage, WorkDir: record.WorkDir, Err: err}
}

// modulesDir resolves the provisioning module sources: configuration
// first, then a terraform directory next to the executable.
func (o *Orchestrator) modulesDir() (string, error) {
	if o.cfg.ModulesDir != "" {
		return o.cfg.ModulesDir, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(filepath.Dir(exe), "terraform")
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("provisioning modules not found at %s, set modulesDir or BB_MODULES_DIR: %w", dir, err)
	}
	return dir, nil
}

// writeKubeconfig persists the engine-produced kubeconfig next to the
// environment's other artifacts. An environment without a cluster output
// cannot proceed to apply.
func (o *Orchestrator) writeKubeconfig(envDir string, outputs terraform.Outputs) (string, error) {
	if o.cfg.Kubeconfig != "" {
		return o.cfg.Kubeconfig, nil
	}

	content := outputs.String(KubeconfigOutput)
	if content == "" {
		return "", &errors.ProvisioningError{
			Action: "outputs",
			Err:    fmt.Errorf("engine produced no %s output", KubeconfigOutput),
		}
	}

	path := filepath.Join(envDir, "kubeconfig")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// writeRender persists the final documents as one multi-document YAML
// file, the input for down and for dry-run diffs.
func writeRender(renderDir string, set *workload.ResourceSet) error {
	if err := os.MkdirAll(renderDir, 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	for i, item := range set.Items {
		if i > 0 {
			buf.WriteString("---\n")
		}
		doc, err := sigsyaml.Marshal(item.Object)
		if err != nil {
			return fmt.Errorf("encoding %s/%s: %w", item.GetKind(), item.GetName(), err)
		}
		buf.Write(doc)
	}

	return os.WriteFile(filepath.Join(renderDir, renderFileName), buf.Bytes(), 0o644)
}

// printAccessSummary prints how to reach the environment: workload
// endpoints plus non-sensitive dependency outputs.
func printAccessSummary(m *manifest.Manifest, record *registry.Record) {
	output.Println("")
	output.Println(output.StyleSummary.Render("Access"))

	ns := record.Namespace
	for i := range m.Services {
		svc := &m.Services[i]
		if svc.Exposed() {
			output.Println(fmt.Sprintf("  %s: ingress %s.%s (port %d)", svc.Name, svc.Name, ns, svc.Port))
		} else {
			output.Println(fmt.Sprintf("  %s: %s.%s.svc:%d", svc.Name, svc.Name, ns, svc.Port))
		}
	}

	names := make([]string, 0, len(record.Outputs))
	for name, out := range record.Outputs {
		if !out.Sensitive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		output.Println(fmt.Sprintf("  %s=%s", name, record.Outputs[name].Value))
	}
}
