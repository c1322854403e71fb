package lifecycle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/registry"
	"github.com/buildandburn/bb/internal/terraform"
)

// KubeconfigOutput is the engine output holding the cluster kubeconfig.
// It is consumed directly and never exposed as a placeholder.
const KubeconfigOutput = "kubeconfig"

// outputAliases maps placeholder names to the engine output they mirror,
// for the handful of names whose placeholder spelling diverges from the
// engine's.
var outputAliases = map[string]string{
	"DATABASE_NAME":  "db_name",
	"CACHE_ENDPOINT": "redis_primary_endpoint",
	"KAFKA_BROKERS":  "kafka_bootstrap_brokers",
}

// placeholderValues projects engine outputs onto placeholder names:
// every output under its upper-cased name, plus the aliases. The
// project name backs DATABASE_NAME when the engine does not emit a
// database name, and REDIS_PORT falls back to the protocol default.
func placeholderValues(tf terraform.Outputs, project string) map[string]string {
	values := make(map[string]string, len(tf))

	for name := range tf {
		if name == KubeconfigOutput {
			continue
		}
		values[strings.ToUpper(name)] = tf.String(name)
	}

	for placeholder, source := range outputAliases {
		if _, ok := values[placeholder]; ok {
			continue
		}
		if tf.Has(source) {
			values[placeholder] = tf.String(source)
		}
	}

	if values["DATABASE_NAME"] == "" && tf.Has("database_endpoint") {
		values["DATABASE_NAME"] = project
	}
	if values["REDIS_PORT"] == "" && tf.Has("redis_primary_endpoint") {
		values["REDIS_PORT"] = "6379"
	}

	return values
}

// verifyOutputs checks that every declared dependency produced the
// outputs it advertises. A module that provisioned but surfaced no
// connection details is a provisioning failure, not a render failure.
func verifyOutputs(m *manifest.Manifest, values map[string]string) error {
	var missing []string
	for i := range m.Dependencies {
		for _, name := range m.Dependencies[i].ExpectedOutputs() {
			if values[name] == "" {
				missing = append(missing, name)
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return &errors.ProvisioningError{
		Action: "outputs",
		Err: fmt.Errorf("provisioning finished but outputs are missing: %s",
			strings.Join(missing, ", ")),
	}
}

// recordOutputs converts engine outputs into the persisted record shape,
// carrying sensitivity markers so info can mask credentials.
func recordOutputs(tf terraform.Outputs, values map[string]string) map[string]registry.OutputValue {
	sensitive := make(map[string]bool, len(tf))
	for name, out := range tf {
		sensitive[strings.ToUpper(name)] = out.Sensitive
	}
	for placeholder, source := range outputAliases {
		if out, ok := tf[source]; ok {
			sensitive[placeholder] = sensitive[placeholder] || out.Sensitive
		}
	}

	recorded := make(map[string]registry.OutputValue, len(values))
	for name, value := range values {
		recorded[name] = registry.OutputValue{Value: value, Sensitive: sensitive[name]}
	}
	return recorded
}

// stubValues fabricates placeholder values for a dry run, one per
// advertised output of each declared dependency.
func stubValues(m *manifest.Manifest) map[string]string {
	values := map[string]string{}
	for i := range m.Dependencies {
		for _, name := range m.Dependencies[i].ExpectedOutputs() {
			values[name] = "<" + name + ">"
		}
	}
	return values
}
