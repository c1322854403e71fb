package workload

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/naming"
)

// generateService compiles one manifest service into its workload
// resources: Deployment, Service, optional Ingress, optional ConfigMap.
func generateService(m *manifest.Manifest, svc *manifest.Service, namespace, envID string) ([]*unstructured.Unstructured, error) {
	var objs []runtime.Object

	deploy, err := buildDeployment(m, svc, namespace)
	if err != nil {
		return nil, err
	}
	objs = append(objs, deploy)

	objs = append(objs, buildService(svc, namespace))

	if svc.Exposed() {
		objs = append(objs, buildIngress(svc, namespace))
	}

	if len(svc.ConfigData) > 0 {
		objs = append(objs, buildConfigMap(svc, namespace))
	}

	out := make([]*unstructured.Unstructured, 0, len(objs))
	for _, obj := range objs {
		u, err := toUnstructured(obj)
		if err != nil {
			return nil, err
		}
		InjectLabels(u, m.Name, envID)
		out = append(out, u)
	}

	return out, nil
}

func buildDeployment(m *manifest.Manifest, svc *manifest.Service, namespace string) (*appsv1.Deployment, error) {
	replicas := int32(svc.Replicas)

	container := corev1.Container{
		Name:    svc.Name,
		Image:   svc.Image,
		Command: svc.Command,
		Args:    svc.Args,
		Ports: []corev1.ContainerPort{
			{ContainerPort: int32(svc.Port), Protocol: corev1.ProtocolTCP},
		},
		Env: buildEnv(m, svc, namespace),
	}

	if svc.Resources != nil {
		reqs, err := buildResourceRequirements(svc.Resources)
		if err != nil {
			return nil, err
		}
		container.Resources = reqs
	}

	if svc.ReadinessProbe != nil {
		container.ReadinessProbe = buildProbe(svc.ReadinessProbe, svc.Port)
	}
	if svc.LivenessProbe != nil {
		container.LivenessProbe = buildProbe(svc.LivenessProbe, svc.Port)
	}

	for _, vm := range svc.VolumeMounts {
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      vm.Name,
			MountPath: vm.MountPath,
			ReadOnly:  vm.ReadOnly,
		})
	}

	podSpec := corev1.PodSpec{
		Containers: []corev1.Container{container},
	}

	for _, vol := range svc.Volumes {
		v := corev1.Volume{Name: vol.Name}
		switch {
		case vol.ConfigMap != "":
			v.VolumeSource = corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: vol.ConfigMap},
				},
			}
		default:
			v.VolumeSource = corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			}
		}
		podSpec.Volumes = append(podSpec.Volumes, v)
	}

	selector := map[string]string{"app": svc.Name}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      svc.Name,
			Namespace: namespace,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"app":        svc.Name,
						LabelService: svc.Name,
					},
				},
				Spec: podSpec,
			},
		},
	}, nil
}

func buildService(svc *manifest.Service, namespace string) *corev1.Service {
	svcType := corev1.ServiceTypeClusterIP
	switch svc.ServiceType {
	case "LoadBalancer":
		svcType = corev1.ServiceTypeLoadBalancer
	case "NodePort":
		svcType = corev1.ServiceTypeNodePort
	}

	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      svc.Name,
			Namespace: namespace,
		},
		Spec: corev1.ServiceSpec{
			Type:     svcType,
			Selector: map[string]string{"app": svc.Name},
			Ports: []corev1.ServicePort{
				{
					Port:       int32(svc.Port),
					TargetPort: intstr.FromInt32(int32(svc.Port)),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func buildIngress(svc *manifest.Service, namespace string) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix

	return &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      svc.Name,
			Namespace: namespace,
			Annotations: map[string]string{
				"kubernetes.io/ingress.class":           "alb",
				"alb.ingress.kubernetes.io/scheme":      "internet-facing",
				"alb.ingress.kubernetes.io/target-type": "ip",
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: svc.Name,
											Port: networkingv1.ServiceBackendPort{Number: int32(svc.Port)},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func buildConfigMap(svc *manifest.Service, namespace string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      svc.Name + "-config",
			Namespace: namespace,
		},
		Data: svc.ConfigData,
	}
}

func buildResourceRequirements(r *manifest.Resources) (corev1.ResourceRequirements, error) {
	out := corev1.ResourceRequirements{}

	parse := func(list manifest.ResourceList) (corev1.ResourceList, error) {
		if list.CPU == "" && list.Memory == "" {
			return nil, nil
		}
		rl := corev1.ResourceList{}
		if list.CPU != "" {
			q, err := resource.ParseQuantity(list.CPU)
			if err != nil {
				return nil, fmt.Errorf("parsing cpu quantity %q: %w", list.CPU, err)
			}
			rl[corev1.ResourceCPU] = q
		}
		if list.Memory != "" {
			q, err := resource.ParseQuantity(list.Memory)
			if err != nil {
				return nil, fmt.Errorf("parsing memory quantity %q: %w", list.Memory, err)
			}
			rl[corev1.ResourceMemory] = q
		}
		return rl, nil
	}

	var err error
	if out.Requests, err = parse(r.Requests); err != nil {
		return out, err
	}
	if out.Limits, err = parse(r.Limits); err != nil {
		return out, err
	}

	return out, nil
}

func buildProbe(p *manifest.Probe, defaultPort int) *corev1.Probe {
	port := p.Port
	if port == 0 {
		port = defaultPort
	}

	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: p.Path,
				Port: intstr.FromInt32(int32(port)),
			},
		},
		InitialDelaySeconds: int32(p.InitialDelaySeconds),
		PeriodSeconds:       int32(p.PeriodSeconds),
	}
}

// buildCredentialSecret compiles one dependency's credentials into a Secret.
// Values carry placeholders in plan mode and resolved values after render.
func buildCredentialSecret(project string, dep *manifest.Dependency, namespace string) *corev1.Secret {
	data := make(map[string]string)

	switch dep.Type {
	case manifest.DependencyDatabase:
		data["endpoint"] = "${DATABASE_ENDPOINT}"
		data["username"] = "${DATABASE_USERNAME}"
		data["password"] = "${DATABASE_PASSWORD}"
		data["database"] = "${DATABASE_NAME}"
	case manifest.DependencyQueue:
		data["endpoint"] = "${MQ_ENDPOINT}"
		data["username"] = "${MQ_USERNAME}"
		data["password"] = "${MQ_PASSWORD}"
	case manifest.DependencyCache:
		data["endpoint"] = "${CACHE_ENDPOINT}"
		data["port"] = "${REDIS_PORT}"
	case manifest.DependencyStream:
		data["brokers"] = "${KAFKA_BROKERS}"
	}

	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.CredentialSecret(project, string(dep.Type)),
			Namespace: namespace,
		},
		Type:       corev1.SecretTypeOpaque,
		StringData: data,
	}
}

// buildEnv assembles the container environment: user-declared entries,
// injected dependency families, then the common app variables.
func buildEnv(m *manifest.Manifest, svc *manifest.Service, namespace string) []corev1.EnvVar {
	var env []corev1.EnvVar

	for _, e := range svc.Env {
		ev := corev1.EnvVar{Name: e.Name, Value: e.Value}
		if e.ValueFrom != nil {
			ev.Value = ""
			ev.ValueFrom = &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: e.ValueFrom.SecretName},
					Key:                  e.ValueFrom.Key,
				},
			}
		}
		env = append(env, ev)
	}

	env = append(env, injectedEnv(m, svc, namespace)...)

	env = append(env,
		corev1.EnvVar{Name: "APP_NAME", Value: svc.Name},
		corev1.EnvVar{Name: "APP_NAMESPACE", Value: namespace},
		corev1.EnvVar{Name: "ENV", Value: "development"},
	)

	return env
}

// injectedEnv derives connection variables from the service's declared
// dependencies: sibling services get SERVICE_HOST/PORT pairs, declared
// infrastructure dependencies get their connection family with
// placeholders resolved at render time.
func injectedEnv(m *manifest.Manifest, svc *manifest.Service, namespace string) []corev1.EnvVar {
	var env []corev1.EnvVar

	for _, depName := range svc.DependsOn {
		if sibling := m.Service(depName); sibling != nil {
			prefix := envPrefix(depName)
			host := fmt.Sprintf("%s.%s.svc.cluster.local", depName, namespace)
			env = append(env,
				corev1.EnvVar{Name: prefix + "_SERVICE_HOST", Value: host},
				corev1.EnvVar{Name: prefix + "_SERVICE_PORT", Value: fmt.Sprintf("%d", sibling.Port)},
			)
			continue
		}

		dep := m.Dependency(manifest.DependencyType(depName))
		if dep == nil {
			continue
		}
		env = append(env, dependencyEnv(dep.Type)...)
	}

	return env
}

// dependencyEnv is the per-type connection variable family, matching what
// downstream applications conventionally read.
func dependencyEnv(t manifest.DependencyType) []corev1.EnvVar {
	switch t {
	case manifest.DependencyDatabase:
		return []corev1.EnvVar{
			{Name: "DATABASE_HOST", Value: "${DATABASE_ENDPOINT}"},
			{Name: "DATABASE_PORT", Value: "5432"},
			{Name: "DATABASE_NAME", Value: "${DATABASE_NAME}"},
			{Name: "DATABASE_USER", Value: "${DATABASE_USERNAME}"},
			{Name: "DATABASE_PASSWORD", Value: "${DATABASE_PASSWORD}"},
			{Name: "DATABASE_URL", Value: "postgresql://${DATABASE_USERNAME}:${DATABASE_PASSWORD}@${DATABASE_ENDPOINT}:5432/${DATABASE_NAME}"},
		}
	case manifest.DependencyQueue:
		return []corev1.EnvVar{
			{Name: "RABBITMQ_HOST", Value: "${MQ_ENDPOINT}"},
			{Name: "RABBITMQ_PORT", Value: "5672"},
			{Name: "RABBITMQ_USER", Value: "${MQ_USERNAME}"},
			{Name: "RABBITMQ_PASSWORD", Value: "${MQ_PASSWORD}"},
			{Name: "RABBITMQ_URL", Value: "amqp://${MQ_USERNAME}:${MQ_PASSWORD}@${MQ_ENDPOINT}:5672/"},
		}
	case manifest.DependencyCache:
		return []corev1.EnvVar{
			{Name: "REDIS_HOST", Value: "${CACHE_ENDPOINT}"},
			{Name: "REDIS_PORT", Value: "6379"},
			{Name: "REDIS_URL", Value: "redis://${CACHE_ENDPOINT}:6379"},
		}
	case manifest.DependencyStream:
		return []corev1.EnvVar{
			{Name: "KAFKA_BROKERS", Value: "${KAFKA_BROKERS}"},
		}
	default:
		return nil
	}
}

func envPrefix(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		case r == '-':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// toUnstructured converts a typed object for the dynamic applier.
func toUnstructured(obj runtime.Object) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("converting %T to unstructured: %w", obj, err)
	}
	return &unstructured.Unstructured{Object: content}, nil
}
