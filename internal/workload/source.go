package workload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	yamlv3 "gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/output"
)

// SourceKind identifies where workload resources came from.
type SourceKind string

const (
	// SourceCustom loads documents from the manifest's custom resource path.
	SourceCustom SourceKind = "custom"
	// SourceChart templates a conventional chart/ directory.
	SourceChart SourceKind = "chart"
	// SourceManifests loads documents from a conventional manifests/ directory.
	SourceManifests SourceKind = "manifests"
	// SourceGenerated compiles resources from the manifest's services.
	SourceGenerated SourceKind = "generated"
)

// Source produces workload documents for one environment. Authored
// sources (custom, chart, manifests) return documents as written, with
// only the namespace enforced; generation happens only when no authored
// source matches.
type Source interface {
	Kind() SourceKind
	Resources(ctx context.Context, namespace string) ([]*unstructured.Unstructured, error)
}

// SelectSource picks the resource source for a manifest, first match wins:
// explicit custom path, then chart/, then manifests/, relative to baseDir.
// Generation is the fallback when nothing matches.
func SelectSource(m *manifest.Manifest, baseDir string) (Source, error) {
	if m.CustomResourcePath != "" {
		path := m.CustomResourcePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("custom resource path %q: %w", m.CustomResourcePath, err)
		}
		return &dirSource{kind: SourceCustom, dir: path}, nil
	}

	chartDir := filepath.Join(baseDir, "chart")
	if _, err := os.Stat(filepath.Join(chartDir, "Chart.yaml")); err == nil {
		return &chartSource{dir: chartDir, release: m.Name}, nil
	}

	manifestsDir := filepath.Join(baseDir, "manifests")
	if fi, err := os.Stat(manifestsDir); err == nil && fi.IsDir() {
		return &dirSource{kind: SourceManifests, dir: manifestsDir}, nil
	}

	return nil, nil
}

// dirSource loads every *.yaml / *.yml document under a directory.
type dirSource struct {
	kind SourceKind
	dir  string
}

func (s *dirSource) Kind() SourceKind { return s.kind }

func (s *dirSource) Resources(_ context.Context, namespace string) ([]*unstructured.Unstructured, error) {
	var paths []string
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.dir, err)
	}
	sort.Strings(paths)

	var resources []*unstructured.Unstructured
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		docs, err := DecodeDocuments(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		resources = append(resources, docs...)
	}

	enforceNamespace(resources, namespace)
	return resources, nil
}

// chartSource templates a chart directory with the helm binary. The
// release name is the project name, matching how the chart would be
// installed by hand.
type chartSource struct {
	dir     string
	release string
}

func (s *chartSource) Kind() SourceKind { return SourceChart }

func (s *chartSource) Resources(ctx context.Context, namespace string) ([]*unstructured.Unstructured, error) {
	helm, err := exec.LookPath("helm")
	if err != nil {
		return nil, fmt.Errorf("chart source requires the helm binary: %w", err)
	}

	cmd := exec.CommandContext(ctx, helm, "template", s.release, s.dir, "--namespace", namespace)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	output.Debug("templating chart", "dir", s.dir, "release", s.release)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("helm template failed: %w\n%s", err, strings.TrimSpace(stderr.String()))
	}

	resources, err := DecodeDocuments(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parsing helm output: %w", err)
	}

	enforceNamespace(resources, namespace)
	return resources, nil
}

// DecodeDocuments splits multi-document YAML and converts each document
// into an unstructured object. Empty documents are skipped.
func DecodeDocuments(raw []byte) ([]*unstructured.Unstructured, error) {
	var resources []*unstructured.Unstructured

	dec := yamlv3.NewDecoder(bytes.NewReader(raw))
	for {
		var node yamlv3.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if node.Kind == 0 || (node.Kind == yamlv3.DocumentNode && len(node.Content) == 0) {
			continue
		}

		doc, err := yamlv3.Marshal(&node)
		if err != nil {
			return nil, err
		}

		jsonBytes, err := yaml.YAMLToJSON(doc)
		if err != nil {
			return nil, err
		}
		if string(jsonBytes) == "null" {
			continue
		}

		var content map[string]any
		if err := json.Unmarshal(jsonBytes, &content); err != nil {
			return nil, err
		}

		obj := &unstructured.Unstructured{Object: content}
		if obj.GetKind() == "" {
			return nil, fmt.Errorf("document has no kind")
		}
		resources = append(resources, obj)
	}

	return resources, nil
}

// enforceNamespace pins every namespaced document to the environment
// namespace. Authored documents are otherwise applied as written.
func enforceNamespace(resources []*unstructured.Unstructured, namespace string) {
	for _, r := range resources {
		if r.GetKind() == "Namespace" {
			continue
		}
		r.SetNamespace(namespace)
	}
}
