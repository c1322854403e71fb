// Package registry is the local catalogue of environments: one directory
// per environment under a root, each holding the environment's record and
// working artifacts.
package registry

import (
	"time"
)

// RecordFileName is the metadata file inside each environment directory.
const RecordFileName = "env_info.json"

// State is the lifecycle state persisted in a record.
type State string

const (
	StateInitialized  State = "initialized"
	StateProvisioning State = "provisioning"
	StateReady        State = "ready"
	StateDestroying   State = "destroying"
	StateDestroyed    State = "destroyed"
	StateFailed       State = "failed"
)

// OutputValue is one provisioning output carried in a record. Sensitive
// values are persisted but only printed on explicit request.
type OutputValue struct {
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// Record is the unit of truth for one environment. Written by the
// lifecycle orchestrator; read by list, info and down.
type Record struct {
	EnvID       string     `json:"env_id"`
	ProjectName string     `json:"project_name"`
	Region      string     `json:"region"`
	State       State      `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	DestroyedAt *time.Time `json:"destroyed_at,omitempty"`

	// Namespace is the cluster namespace holding the workload.
	Namespace string `json:"namespace,omitempty"`

	// ManifestSnapshot is the exact manifest content this environment
	// was built from, kept for reproducibility.
	ManifestSnapshot string `json:"manifest_snapshot,omitempty"`

	// Outputs are the provisioning outputs keyed by placeholder name.
	Outputs map[string]OutputValue `json:"outputs,omitempty"`

	// WorkDir is the environment's working directory (engine copy,
	// state, logs, rendered resources).
	WorkDir string `json:"work_dir,omitempty"`

	// TerraformDir is the engine working directory inside WorkDir.
	TerraformDir string `json:"terraform_dir,omitempty"`

	// KubeconfigPath points at the engine-produced kubeconfig.
	KubeconfigPath string `json:"kubeconfig_path,omitempty"`

	// RenderDir holds the last rendered workload documents.
	RenderDir string `json:"render_dir,omitempty"`
}

// Summary is the listing shape of a record.
type Summary struct {
	EnvID       string
	ProjectName string
	Region      string
	State       State
	CreatedAt   time.Time
}

// Summary projects the record for listing.
func (r *Record) Summary() Summary {
	return Summary{
		EnvID:       r.EnvID,
		ProjectName: r.ProjectName,
		Region:      r.Region,
		State:       r.State,
		CreatedAt:   r.CreatedAt,
	}
}
