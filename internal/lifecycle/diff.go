package lifecycle

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"

	bberrors "github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/infra"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/output"
	"github.com/buildandburn/bb/internal/workload"
)

// dryRun compiles and renders everything a real up would, prints the
// plan, and diffs the rendered workload against the environment's last
// persisted render when one exists. No registry, cloud or cluster state
// is touched.
func (o *Orchestrator) dryRun(ctx context.Context, m *manifest.Manifest, plan *infra.Plan, envID, baseDir string) error {
	values := stubValues(m)

	set, err := o.renderWorkload(ctx, m, envID, baseDir, values)
	if err != nil {
		return err
	}

	output.Println(output.StyleSummary.Render("Provisioning plan"))
	for _, mod := range plan.Modules {
		line := fmt.Sprintf("  %s (%s)", mod.Target(), mod.Source)
		if len(mod.DependsOn) > 0 {
			line += "  after " + fmt.Sprint(mod.DependsOn)
		}
		output.Println(line)
	}
	for _, policy := range plan.Policies {
		if policy.Enabled {
			output.Println(fmt.Sprintf("  policy %s -> %s", policy.Name, policy.Module))
		}
	}

	output.Println("")
	output.Println(output.StyleSummary.Render(fmt.Sprintf("Workload (%d resources, namespace %s)", len(set.Items), set.Namespace)))
	for _, item := range set.Items {
		output.Println("  " + item.GetKind() + "/" + item.GetName())
	}

	diff, err := o.diffAgainstLastRender(envID, set)
	if err != nil {
		return err
	}
	if diff != "" {
		output.Println("")
		output.Println(output.StyleSummary.Render("Changes since last render"))
		output.Println(diff)
	}

	return nil
}

// diffAgainstLastRender compares the freshly rendered documents with
// the render persisted by the environment's last up, when the target
// environment already exists. Returns "" when there is nothing to
// compare or nothing changed.
func (o *Orchestrator) diffAgainstLastRender(envID string, set *workload.ResourceSet) (string, error) {
	record, err := o.store.Get(envID)
	if err != nil {
		if stderrors.Is(err, bberrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if record.RenderDir == "" {
		return "", nil
	}

	previous, err := os.ReadFile(filepath.Join(record.RenderDir, renderFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "bb-render-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	if err := writeRender(tmpDir, set); err != nil {
		return "", err
	}
	current, err := os.ReadFile(filepath.Join(tmpDir, renderFileName))
	if err != nil {
		return "", err
	}

	return diffDocuments(previous, current)
}

// diffDocuments renders a human diff between two multi-document YAML
// payloads, empty when they match.
func diffDocuments(previous, current []byte) (string, error) {
	from, err := yamlInput("last-render", previous)
	if err != nil {
		return "", fmt.Errorf("parsing last render: %w", err)
	}
	to, err := yamlInput("rendered", current)
	if err != nil {
		return "", fmt.Errorf("parsing rendered documents: %w", err)
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return "", fmt.Errorf("comparing renders: %w", err)
	}
	if len(report.Diffs) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	human := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      !output.IsTTY(),
		OmitHeader:        true,
	}
	if err := human.WriteReport(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func yamlInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}

	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}

	return ytbx.InputFile{Location: name, Documents: docs}, nil
}
