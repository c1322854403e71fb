package workload

import "k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

// Labels attached to every generated resource so later operations can
// discover what belongs to an environment.
const (
	// LabelManagedBy marks resources owned by bb.
	LabelManagedBy = "app.kubernetes.io/managed-by"

	// LabelEnvID carries the environment id.
	LabelEnvID = "buildandburn.dev/env-id"

	// LabelProject carries the project name.
	LabelProject = "buildandburn.dev/project"

	// LabelService carries the originating service name.
	LabelService = "buildandburn.dev/service"

	managedByValue = "buildandburn"
)

// EnvironmentLabels returns the label set for one environment.
func EnvironmentLabels(project, envID string) map[string]string {
	return map[string]string{
		LabelManagedBy: managedByValue,
		LabelEnvID:     envID,
		LabelProject:   project,
	}
}

// InjectLabels merges the environment labels into a resource, keeping any
// labels already present.
func InjectLabels(obj *unstructured.Unstructured, project, envID string) {
	labels := obj.GetLabels()
	if labels == nil {
		labels = make(map[string]string, 3)
	}

	for k, v := range EnvironmentLabels(project, envID) {
		labels[k] = v
	}

	obj.SetLabels(labels)
}
