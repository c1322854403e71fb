package kubernetes

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/buildandburn/bb/internal/output"
)

// DeleteResult summarizes a delete operation.
type DeleteResult struct {
	// Deleted counts resources deleted.
	Deleted int

	// NotFound counts resources already gone.
	NotFound int

	// Errors holds per-resource failures. Deletion keeps going past
	// individual failures; teardown wants everything it can get.
	Errors []error
}

// Delete removes resources in reverse apply order. Missing resources are
// counted, not failed: teardown is idempotent.
func (c *Client) Delete(ctx context.Context, resources []*unstructured.Unstructured) (*DeleteResult, error) {
	ordered := make([]*unstructured.Unstructured, len(resources))
	copy(ordered, resources)
	SortForDelete(ordered)

	propagation := metav1.DeletePropagationBackground
	deleteOpts := metav1.DeleteOptions{PropagationPolicy: &propagation}

	result := &DeleteResult{}

	for _, res := range ordered {
		gvr := gvrFromObject(res)

		var err error
		if ns := res.GetNamespace(); ns != "" {
			err = c.Dynamic.Resource(gvr).Namespace(ns).Delete(ctx, res.GetName(), deleteOpts)
		} else {
			err = c.Dynamic.Resource(gvr).Delete(ctx, res.GetName(), deleteOpts)
		}

		if err != nil {
			if apierrors.IsNotFound(err) {
				result.NotFound++
				continue
			}
			result.Errors = append(result.Errors,
				fmt.Errorf("deleting %s/%s: %w", res.GetKind(), res.GetName(), err))
			continue
		}

		result.Deleted++
		output.Info(output.FormatResourceLine(res.GetKind(), res.GetNamespace(), res.GetName(), output.StatusDeleted))
	}

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("deleting workload: %d of %d resources failed", len(result.Errors), len(resources))
	}

	return result, nil
}
