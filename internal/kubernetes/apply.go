package kubernetes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"

	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/output"
)

// ApplyOptions configures an apply operation.
type ApplyOptions struct {
	// DryRun performs a server-side dry run without persisting changes.
	DryRun bool
}

// ApplyResult summarizes an apply operation.
type ApplyResult struct {
	// Applied counts resources successfully applied.
	Applied int

	// Statuses records the per-resource outcome in apply order.
	Statuses []ResourceStatus
}

// ResourceStatus is one resource's apply outcome.
type ResourceStatus struct {
	Kind      string
	Namespace string
	Name      string
	Status    string
}

// Apply server-side-applies all resources in weight order. The first
// failure aborts: partially applied workloads are the caller's recovery
// problem, and it needs the error intact to classify it.
func (c *Client) Apply(ctx context.Context, resources []*unstructured.Unstructured, opts ApplyOptions) (*ApplyResult, error) {
	ordered := make([]*unstructured.Unstructured, len(resources))
	copy(ordered, resources)
	SortForApply(ordered)

	result := &ApplyResult{}

	for _, res := range ordered {
		status, err := c.applyResource(ctx, res, opts)
		if err != nil {
			return result, &errors.ApplyError{
				Namespace:         res.GetNamespace(),
				OwnershipConflict: IsOwnershipConflict(err),
				Err:               fmt.Errorf("applying %s/%s: %w", res.GetKind(), res.GetName(), err),
			}
		}

		result.Applied++
		result.Statuses = append(result.Statuses, ResourceStatus{
			Kind:      res.GetKind(),
			Namespace: res.GetNamespace(),
			Name:      res.GetName(),
			Status:    status,
		})
		output.Info(output.FormatResourceLine(res.GetKind(), res.GetNamespace(), res.GetName(), status))
	}

	return result, nil
}

// applyResource performs server-side apply for one resource and reports
// whether it was created, configured or unchanged.
func (c *Client) applyResource(ctx context.Context, obj *unstructured.Unstructured, opts ApplyOptions) (string, error) {
	gvr := gvrFromObject(obj)
	ns := obj.GetNamespace()

	var existingVersion string
	if ns != "" {
		if existing, err := c.Dynamic.Resource(gvr).Namespace(ns).Get(ctx, obj.GetName(), metav1.GetOptions{}); err == nil {
			existingVersion = existing.GetResourceVersion()
		}
	} else {
		if existing, err := c.Dynamic.Resource(gvr).Get(ctx, obj.GetName(), metav1.GetOptions{}); err == nil {
			existingVersion = existing.GetResourceVersion()
		}
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("marshaling resource: %w", err)
	}

	force := true
	patchOpts := metav1.PatchOptions{
		FieldManager: fieldManagerName,
		Force:        &force,
	}
	if opts.DryRun {
		patchOpts.DryRun = []string{metav1.DryRunAll}
	}

	var result *unstructured.Unstructured
	var patchErr error
	if ns != "" {
		result, patchErr = c.Dynamic.Resource(gvr).Namespace(ns).Patch(
			ctx, obj.GetName(), types.ApplyPatchType, data, patchOpts,
		)
	} else {
		result, patchErr = c.Dynamic.Resource(gvr).Patch(
			ctx, obj.GetName(), types.ApplyPatchType, data, patchOpts,
		)
	}
	if patchErr != nil {
		return "", patchErr
	}

	if existingVersion == "" {
		return output.StatusCreated, nil
	}
	if result != nil && result.GetResourceVersion() == existingVersion {
		return output.StatusUnchanged, nil
	}
	return output.StatusConfigured, nil
}

// gvrFromObject derives GroupVersionResource from an unstructured object.
func gvrFromObject(obj *unstructured.Unstructured) schema.GroupVersionResource {
	gvk := obj.GroupVersionKind()
	return schema.GroupVersionResource{
		Group:    gvk.Group,
		Version:  gvk.Version,
		Resource: kindToResource(gvk.Kind),
	}
}

// knownKindResources maps Kind to its plural resource name for the types
// the workload compiler can produce plus common authored-document kinds.
var knownKindResources = map[string]string{
	"Namespace":             "namespaces",
	"ServiceAccount":        "serviceaccounts",
	"Secret":                "secrets",
	"ConfigMap":             "configmaps",
	"PersistentVolumeClaim": "persistentvolumeclaims",
	"Service":               "services",
	"Deployment":            "deployments",
	"StatefulSet":           "statefulsets",
	"DaemonSet":             "daemonsets",
	"ReplicaSet":            "replicasets",
	"Job":                   "jobs",
	"CronJob":               "cronjobs",
	"Ingress":               "ingresses",
	"NetworkPolicy":         "networkpolicies",
	"Role":                  "roles",
	"RoleBinding":           "rolebindings",
	"Pod":                   "pods",
	"Endpoints":             "endpoints",
}

// kindToResource converts a Kind to its plural resource name, with a
// heuristic fallback for kinds outside the table.
func kindToResource(kind string) string {
	if resource, ok := knownKindResources[kind]; ok {
		return resource
	}
	return heuristicPluralize(kind)
}

func heuristicPluralize(kind string) string {
	lower := strings.ToLower(kind)
	switch {
	case strings.HasSuffix(lower, "ss") || strings.HasSuffix(lower, "sh") || strings.HasSuffix(lower, "ch") || strings.HasSuffix(lower, "x"):
		return lower + "es"
	case strings.HasSuffix(lower, "s"):
		return lower
	case strings.HasSuffix(lower, "y") && !isVowel(lower[len(lower)-2]):
		return lower[:len(lower)-1] + "ies"
	default:
		return lower + "s"
	}
}

func isVowel(b byte) bool {
	return b == 'a' || b == 'e' || b == 'i' || b == 'o' || b == 'u'
}
