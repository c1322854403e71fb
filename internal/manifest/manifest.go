// Package manifest defines the build-and-burn manifest model and its
// validation. Parsing is a pure transformation: the manifest is accepted
// or rejected as a whole, never partially repaired.
package manifest

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Manifest is the root entity describing one disposable environment.
type Manifest struct {
	// Name is the project name, embedded in every derived identifier.
	Name string `json:"name"`

	// Description is free-form text carried into the environment record.
	Description string `json:"description,omitempty"`

	// Region is the provider region. Empty means the configured default.
	Region string `json:"region,omitempty"`

	// CustomResourcePath points at user-supplied workload resources. When
	// set, resource generation is skipped downstream but services are
	// still parsed for naming and env injection.
	CustomResourcePath string `json:"k8s_path,omitempty"`

	// Services are the workloads to run, in declaration order.
	Services []Service `json:"services"`

	// Dependencies are the managed infrastructure pieces, in declaration
	// order. Declared, not materialized: connection details exist only
	// after provisioning.
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Service describes one workload.
type Service struct {
	Name     string `json:"name" validate:"required"`
	Image    string `json:"image" validate:"required"`
	Port     int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	Replicas int    `json:"replicas,omitempty" validate:"gte=0"`

	// Expose controls whether an Ingress is generated. Defaults to true.
	Expose *bool `json:"expose,omitempty"`

	// ServiceType is the Kubernetes Service type.
	// One of ClusterIP, LoadBalancer, NodePort. Empty means ClusterIP.
	ServiceType string `json:"service_type,omitempty"`

	Command []string `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Env is an ordered list of environment variables. Values may carry
	// ${NAME} placeholders resolved from provisioning outputs.
	Env []EnvVar `json:"env,omitempty" validate:"dive"`

	// ConfigData maps file names to multiline content, compiled into one
	// ConfigMap per service. Values may carry placeholders.
	ConfigData map[string]string `json:"config_data,omitempty"`

	VolumeMounts []VolumeMount `json:"volume_mounts,omitempty" validate:"dive"`
	Volumes      []Volume      `json:"volumes,omitempty" validate:"dive"`

	Resources *Resources `json:"resources,omitempty"`

	ReadinessProbe *Probe `json:"readiness_probe,omitempty"`
	LivenessProbe  *Probe `json:"liveness_probe,omitempty"`

	// DependsOn names other services or declared infrastructure
	// dependencies this service needs.
	DependsOn []string `json:"dependencies,omitempty"`
}

// Exposed reports whether an Ingress should be generated for the service.
func (s *Service) Exposed() bool {
	return s.Expose == nil || *s.Expose
}

// EnvVar is one environment variable entry.
type EnvVar struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value,omitempty"`

	// ValueFrom references a secret key instead of a literal value.
	ValueFrom *SecretKeyRef `json:"value_from,omitempty"`
}

// SecretKeyRef points at one key of a secret.
type SecretKeyRef struct {
	SecretName string `json:"secret_name"`
	Key        string `json:"key"`
}

// VolumeMount mounts a named volume into the container.
type VolumeMount struct {
	Name      string `json:"name" validate:"required"`
	MountPath string `json:"mount_path" validate:"required"`
	ReadOnly  bool   `json:"read_only,omitempty"`
}

// Volume declares a pod volume backed by a ConfigMap or emptyDir.
type Volume struct {
	Name      string `json:"name" validate:"required"`
	ConfigMap string `json:"config_map,omitempty"`
	EmptyDir  bool   `json:"empty_dir,omitempty"`
}

// Resources carries container resource requests and limits.
type Resources struct {
	Requests ResourceList `json:"requests,omitempty"`
	Limits   ResourceList `json:"limits,omitempty"`
}

// ResourceList holds cpu/memory quantity strings.
type ResourceList struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// Probe is an HTTP readiness or liveness probe.
type Probe struct {
	Path                string `json:"path"`
	Port                int    `json:"port,omitempty"`
	InitialDelaySeconds int    `json:"initial_delay_seconds,omitempty"`
	PeriodSeconds       int    `json:"period_seconds,omitempty"`
}

// Service defaults.
const (
	DefaultPort     = 8080
	DefaultReplicas = 1
)

// Parse parses raw manifest text, applies defaults and validates.
// It returns a single ValidationError for the first offending field.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, wrapUnmarshalErr(err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	return Parse(raw)
}

func (m *Manifest) applyDefaults() {
	for i := range m.Services {
		svc := &m.Services[i]
		if svc.Port == 0 {
			svc.Port = DefaultPort
		}
		if svc.Replicas == 0 {
			svc.Replicas = DefaultReplicas
		}
	}

	for i := range m.Dependencies {
		m.Dependencies[i].applyDefaults()
	}
}

// Service returns the named service, or nil.
func (m *Manifest) Service(name string) *Service {
	for i := range m.Services {
		if m.Services[i].Name == name {
			return &m.Services[i]
		}
	}
	return nil
}

// Dependency returns the first dependency of the given type, or nil.
func (m *Manifest) Dependency(t DependencyType) *Dependency {
	for i := range m.Dependencies {
		if m.Dependencies[i].Type == t {
			return &m.Dependencies[i]
		}
	}
	return nil
}
