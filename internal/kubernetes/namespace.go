package kubernetes

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/buildandburn/bb/internal/output"
)

// EnsureNamespace creates the environment namespace if it does not exist.
// The namespace is always created through this path, before any workload
// document reaches Apply, so the applier never races another tool for
// namespace ownership.
func (c *Client) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	_, err := c.Clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("checking namespace %q: %w", name, err)
	}

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
	}

	if _, err := c.Clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("creating namespace %q: %w", name, err)
	}

	output.Info(output.FormatResourceLine("Namespace", "", name, output.StatusCreated))
	return nil
}

// DeleteNamespace removes the environment namespace and waits for
// finalization, so a follow-up create does not collide with a
// terminating namespace.
func (c *Client) DeleteNamespace(ctx context.Context, name string, timeout time.Duration) error {
	err := c.Clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("deleting namespace %q: %w", name, err)
	}

	if timeout <= 0 {
		return nil
	}

	waitErr := wait.PollUntilContextTimeout(ctx, 2*time.Second, timeout, true,
		func(ctx context.Context) (bool, error) {
			_, err := c.Clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			if err != nil {
				return false, err
			}
			return false, nil
		})
	if waitErr != nil {
		return fmt.Errorf("waiting for namespace %q to terminate: %w", name, waitErr)
	}

	output.Info(output.FormatResourceLine("Namespace", "", name, output.StatusDeleted))
	return nil
}
