package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"

	bberrors "github.com/buildandburn/bb/internal/errors"
)

func listKinds() map[schema.GroupVersionResource]string {
	return map[schema.GroupVersionResource]string{
		{Group: "", Version: "v1", Resource: "configmaps"}:                 "ConfigMapList",
		{Group: "", Version: "v1", Resource: "secrets"}:                    "SecretList",
		{Group: "", Version: "v1", Resource: "services"}:                   "ServiceList",
		{Group: "apps", Version: "v1", Resource: "deployments"}:            "DeploymentList",
		{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}: "IngressList",
	}
}

func obj(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion(apiVersion)
	u.SetKind(kind)
	u.SetNamespace(namespace)
	u.SetName(name)
	return u
}

func TestApplyOrdersByWeight(t *testing.T) {
	scheme := runtime.NewScheme()
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds())

	var applied []string
	dyn.PrependReactor("patch", "*", func(action clienttesting.Action) (bool, runtime.Object, error) {
		patch := action.(clienttesting.PatchAction)
		applied = append(applied, fmt.Sprintf("%s/%s", patch.GetResource().Resource, patch.GetName()))
		return true, obj("v1", "ConfigMap", patch.GetNamespace(), patch.GetName()), nil
	})

	client := NewWithClients(dyn, k8sfake.NewClientset())

	resources := []*unstructured.Unstructured{
		obj("networking.k8s.io/v1", "Ingress", "bb-shop", "api"),
		obj("apps/v1", "Deployment", "bb-shop", "api"),
		obj("v1", "Secret", "bb-shop", "shop-database-credentials"),
		obj("v1", "Service", "bb-shop", "api"),
	}

	result, err := client.Apply(context.Background(), resources, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Applied)

	assert.Equal(t, []string{
		"secrets/shop-database-credentials",
		"services/api",
		"deployments/api",
		"ingresses/api",
	}, applied)
}

func TestApplyStopsOnFirstFailure(t *testing.T) {
	scheme := runtime.NewScheme()
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds())

	dyn.PrependReactor("patch", "*", func(action clienttesting.Action) (bool, runtime.Object, error) {
		patch := action.(clienttesting.PatchAction)
		return true, obj("v1", "ConfigMap", patch.GetNamespace(), patch.GetName()), nil
	})
	dyn.PrependReactor("patch", "deployments", func(clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("metadata.annotations: invalid ownership metadata; label validation error")
	})

	client := NewWithClients(dyn, k8sfake.NewClientset())

	resources := []*unstructured.Unstructured{
		obj("apps/v1", "Deployment", "bb-shop", "api"),
		obj("networking.k8s.io/v1", "Ingress", "bb-shop", "api"),
		obj("v1", "ConfigMap", "bb-shop", "api-config"),
	}

	result, err := client.Apply(context.Background(), resources, ApplyOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, bberrors.ErrApply))
	assert.Equal(t, 1, result.Applied, "config applied before the deployment failed")

	var aerr *bberrors.ApplyError
	require.ErrorAs(t, err, &aerr)
	assert.True(t, aerr.OwnershipConflict)
	assert.Equal(t, "bb-shop", aerr.Namespace)
}

func TestDelete(t *testing.T) {
	scheme := runtime.NewScheme()
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds(),
		obj("v1", "Service", "bb-shop", "api"),
		obj("v1", "ConfigMap", "bb-shop", "api-config"),
	)

	var deleted []string
	dyn.PrependReactor("delete", "*", func(action clienttesting.Action) (bool, runtime.Object, error) {
		del := action.(clienttesting.DeleteAction)
		deleted = append(deleted, del.GetResource().Resource)
		return false, nil, nil
	})

	client := NewWithClients(dyn, k8sfake.NewClientset())

	resources := []*unstructured.Unstructured{
		obj("v1", "ConfigMap", "bb-shop", "api-config"),
		obj("v1", "Service", "bb-shop", "api"),
		obj("apps/v1", "Deployment", "bb-shop", "gone-already"),
	}

	result, err := client.Delete(context.Background(), resources)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 1, result.NotFound)

	assert.Equal(t, []string{"deployments", "services", "configmaps"}, deleted,
		"deletion runs in reverse apply order")
}

func TestEnsureNamespace(t *testing.T) {
	clientset := k8sfake.NewClientset()
	client := NewWithClients(nil, clientset)

	labels := map[string]string{"buildandburn.dev/env-id": "a1b2c3d4"}
	require.NoError(t, client.EnsureNamespace(context.Background(), "bb-shop", labels))

	ns, err := clientset.CoreV1().Namespaces().Get(context.Background(), "bb-shop", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", ns.Labels["buildandburn.dev/env-id"])

	// Idempotent.
	require.NoError(t, client.EnsureNamespace(context.Background(), "bb-shop", labels))
}

func TestDeleteNamespace(t *testing.T) {
	clientset := k8sfake.NewClientset()
	client := NewWithClients(nil, clientset)

	require.NoError(t, client.EnsureNamespace(context.Background(), "bb-shop", nil))
	require.NoError(t, client.DeleteNamespace(context.Background(), "bb-shop", 10*time.Second))

	_, err := clientset.CoreV1().Namespaces().Get(context.Background(), "bb-shop", metav1.GetOptions{})
	require.Error(t, err)

	// Deleting a namespace that is already gone is fine.
	require.NoError(t, client.DeleteNamespace(context.Background(), "bb-shop", 0))
}

func TestIsOwnershipConflict(t *testing.T) {
	assert.False(t, IsOwnershipConflict(nil))
	assert.False(t, IsOwnershipConflict(errors.New("connection refused")))
	assert.True(t, IsOwnershipConflict(errors.New("Namespace \"bb-shop\" exists with invalid ownership metadata")))
	assert.True(t, IsOwnershipConflict(errors.New("annotation validation error: key \"meta.helm.sh/release-name\" must equal \"shop\"")))
}

func TestKindToResource(t *testing.T) {
	assert.Equal(t, "deployments", kindToResource("Deployment"))
	assert.Equal(t, "ingresses", kindToResource("Ingress"))
	assert.Equal(t, "endpoints", kindToResource("Endpoints"))
	assert.Equal(t, "networkpolicies", kindToResource("NetworkPolicy"))
	assert.Equal(t, "widgets", kindToResource("Widget"))
}
