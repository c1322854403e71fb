package manifest

import (
	"regexp"
	"sort"
)

// placeholderPattern matches ${NAME} references to provisioning outputs.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Z][A-Z0-9_]*)\}`)

// Placeholders returns the sorted, de-duplicated set of ${NAME} references
// used across all service env values and config data.
func (m *Manifest) Placeholders() []string {
	set := make(map[string]bool)

	collect := func(s string) {
		for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
			set[match[1]] = true
		}
	}

	for i := range m.Services {
		svc := &m.Services[i]
		for _, env := range svc.Env {
			collect(env.Value)
		}
		for _, v := range svc.ConfigData {
			collect(v)
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ExpandPlaceholders substitutes ${NAME} references in s using values.
// References with no matching value are left untouched for the caller to
// detect.
func ExpandPlaceholders(s string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[2 : len(ref)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return ref
	})
}

// UnresolvedPlaceholders returns placeholder names in s with no value in
// values.
func UnresolvedPlaceholders(s string, values map[string]string) []string {
	var missing []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := values[match[1]]; !ok {
			missing = append(missing, match[1])
		}
	}
	return missing
}
