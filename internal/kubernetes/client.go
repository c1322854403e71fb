// Package kubernetes is the cluster applier: server-side apply, ordered
// deletion and namespace management for one environment's workload.
package kubernetes

import (
	"fmt"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// fieldManagerName identifies bb's server-side apply ownership.
const fieldManagerName = "buildandburn"

// ClientOptions configures client creation.
type ClientOptions struct {
	// Kubeconfig is the path to the kubeconfig file. For a managed
	// environment this is the engine-produced kubeconfig in the
	// environment's working directory.
	Kubeconfig string

	// Context selects a kubeconfig context. Empty means current-context.
	Context string
}

// Client wraps the API clients used for applier operations.
type Client struct {
	// Dynamic is used for server-side apply and deletion.
	Dynamic dynamic.Interface

	// Clientset is used for namespace operations.
	Clientset kubernetes.Interface

	// RestConfig is the underlying REST configuration.
	RestConfig *rest.Config
}

// NewClient creates a client from a kubeconfig file.
func NewClient(opts ClientOptions) (*Client, error) {
	restConfig, err := buildRestConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("building kubernetes config: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating clientset: %w", err)
	}

	return &Client{
		Dynamic:    dynamicClient,
		Clientset:  clientset,
		RestConfig: restConfig,
	}, nil
}

// NewWithClients wires pre-built clients. Used by tests with fakes.
func NewWithClients(dyn dynamic.Interface, clientset kubernetes.Interface) *Client {
	return &Client{Dynamic: dyn, Clientset: clientset}
}

func buildRestConfig(opts ClientOptions) (*rest.Config, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{
		ExplicitPath: opts.Kubeconfig,
	}

	overrides := &clientcmd.ConfigOverrides{}
	if opts.Context != "" {
		overrides.CurrentContext = opts.Context
	}

	config := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		overrides,
	)

	return config.ClientConfig()
}
