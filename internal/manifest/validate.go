package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	bberrors "github.com/buildandburn/bb/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// dnsLabel matches RFC 1123 label names, the shape required of anything
// that becomes a Kubernetes object name.
var dnsLabel = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

const maxDNSLabelLen = 63

// Validate checks the whole manifest and returns a single ValidationError
// for the first offending field, in declaration order.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &bberrors.ValidationError{Field: "name", Reason: "project name is required"}
	}

	if len(m.Services) == 0 {
		return &bberrors.ValidationError{Field: "services", Reason: "at least one service is required"}
	}

	seen := make(map[string]bool, len(m.Services))
	for i := range m.Services {
		svc := &m.Services[i]
		path := fmt.Sprintf("services[%d]", i)

		if err := validateService(svc, path); err != nil {
			return err
		}

		if seen[svc.Name] {
			return &bberrors.ValidationError{
				Field:  path + ".name",
				Reason: fmt.Sprintf("duplicate service name %q", svc.Name),
			}
		}
		seen[svc.Name] = true
	}

	for i := range m.Dependencies {
		if err := validateDependency(&m.Dependencies[i], fmt.Sprintf("dependencies[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func validateService(svc *Service, path string) error {
	if err := validate.Struct(svc); err != nil {
		return translateFieldError(err, path)
	}

	if !dnsLabel.MatchString(svc.Name) || len(svc.Name) > maxDNSLabelLen {
		return &bberrors.ValidationError{
			Field:  path + ".name",
			Reason: fmt.Sprintf("%q is not a valid DNS label", svc.Name),
		}
	}

	switch svc.ServiceType {
	case "", "ClusterIP", "LoadBalancer", "NodePort":
	default:
		return &bberrors.ValidationError{
			Field:  path + ".service_type",
			Reason: fmt.Sprintf("unknown service type %q", svc.ServiceType),
		}
	}

	for j, env := range svc.Env {
		if env.Value != "" && env.ValueFrom != nil {
			return &bberrors.ValidationError{
				Field:  fmt.Sprintf("%s.env[%d]", path, j),
				Reason: "value and value_from are mutually exclusive",
			}
		}
	}

	return nil
}

func validateDependency(dep *Dependency, path string) error {
	var spec any
	switch dep.Type {
	case DependencyDatabase:
		spec = dep.Database
	case DependencyQueue:
		spec = dep.Queue
	case DependencyCache:
		spec = dep.Cache
	case DependencyStream:
		spec = dep.Stream
	default:
		return &bberrors.ValidationError{
			Field:  path + ".type",
			Reason: fmt.Sprintf("unknown dependency type %q", dep.Type),
		}
	}

	if err := validate.Struct(spec); err != nil {
		return translateFieldError(err, path)
	}

	return nil
}

// translateFieldError converts the first validator.v10 field error into the
// manifest error shape.
func translateFieldError(err error, path string) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &bberrors.ValidationError{Field: path, Reason: err.Error()}
	}

	fe := verrs[0]
	field := path + "." + fieldPath(fe)

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gte":
		reason = fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		reason = fmt.Sprintf("must be at most %s", fe.Param())
	default:
		reason = fmt.Sprintf("failed %q validation", fe.Tag())
	}

	return &bberrors.ValidationError{Field: field, Reason: reason}
}

// fieldPath renders the validator namespace below the validated struct
// in manifest key form, keeping slice indices so diving errors point at
// the offending element.
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}

	parts := strings.Split(ns, ".")
	for i, part := range parts {
		idx := ""
		if j := strings.Index(part, "["); j >= 0 {
			idx = part[j:]
			part = part[:j]
		}
		parts[i] = jsonFieldName(part) + idx
	}
	return strings.Join(parts, ".")
}

// jsonFieldName lowercases a struct field name into its manifest key form.
func jsonFieldName(name string) string {
	switch name {
	case "StorageGB":
		return "storage"
	case "ClusterSize":
		return "cluster_size"
	case "BrokerCount":
		return "broker_count"
	case "VolumeGB":
		return "volume_size"
	default:
		var out []rune
		for i, r := range name {
			if r >= 'A' && r <= 'Z' {
				if i > 0 {
					out = append(out, '_')
				}
				r += 'a' - 'A'
			}
			out = append(out, r)
		}
		return string(out)
	}
}

func wrapUnmarshalErr(err error) error {
	return &bberrors.ValidationError{Field: "manifest", Reason: err.Error()}
}
