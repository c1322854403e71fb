package kubernetes

import (
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// SortForApply orders resources the way they should be applied: config
// and secrets before the workloads that mount them, ingresses last.
func SortForApply(resources []*unstructured.Unstructured) {
	sort.SliceStable(resources, func(i, j int) bool {
		return kindWeight(resources[i].GetKind()) < kindWeight(resources[j].GetKind())
	})
}

// SortForDelete orders resources for deletion, the reverse of apply.
func SortForDelete(resources []*unstructured.Unstructured) {
	sort.SliceStable(resources, func(i, j int) bool {
		return kindWeight(resources[i].GetKind()) > kindWeight(resources[j].GetKind())
	})
}
