// Package naming derives deterministic, provider-safe names for all
// resources belonging to one environment. Every function is pure: the
// provisioning phase, the workload phase and later info/down lookups must
// each be able to reproduce the same name independently.
package naming

import (
	"fmt"
	"strings"
	"unicode"
)

// NamespacePrefix is the prefix for environment namespaces.
const NamespacePrefix = "bb-"

// Resource returns the canonical name for a resource of the given kind
// inside one environment: <project>-<envID>-<kind>.
func Resource(kind, project, envID string) string {
	return fmt.Sprintf("%s-%s-%s", Sanitize(project), envID, kind)
}

// Namespace returns the cluster namespace for a project's environments.
func Namespace(project string) string {
	return NamespacePrefix + Sanitize(project)
}

// ReleaseName returns the workload release name for a project.
func ReleaseName(project string) string {
	return Sanitize(project)
}

// CredentialSecret returns the name of the credential secret injected for
// one dependency type, e.g. "shop-database-credentials".
func CredentialSecret(project, depType string) string {
	return fmt.Sprintf("%s-%s-credentials", Sanitize(project), depType)
}

// Sanitize lowercases a name and replaces every run of characters that is
// not alphanumeric or '-' with a single '-', trimming leading and trailing
// dashes. The result is safe to embed in derived identifiers.
func Sanitize(name string) string {
	var b strings.Builder
	lastDash := true

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// DatabaseIdentifier derives an identifier acceptable to managed database
// services: alphanumeric only, guaranteed to start with a letter.
func DatabaseIdentifier(project, envID string) string {
	raw := project + envID

	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	id := b.String()
	if id == "" || !unicode.IsLetter(rune(id[0])) {
		id = "db" + id
	}

	return id
}

// Truncate shortens a composite <project>-<envID> name to at most max
// characters. The env-id suffix is kept intact so uniqueness survives;
// only the project portion is trimmed.
func Truncate(name string, max int, envID string) string {
	if len(name) <= max {
		return name
	}

	suffix := "-" + envID
	if !strings.HasSuffix(name, suffix) || max <= len(suffix) {
		return name[:max]
	}

	keep := max - len(suffix)
	head := strings.TrimRight(name[:keep], "-")

	return head + suffix
}
