package kubernetes

// Apply-order weights. Lower weights are applied first; deletion runs in
// reverse.
const (
	weightNamespace      = 0
	weightServiceAccount = 10
	weightSecret         = 15
	weightConfigMap      = 15
	weightPVC            = 20
	weightService        = 50
	weightDeployment     = 100
	weightStatefulSet    = 100
	weightJob            = 110
	weightIngress        = 150
	weightDefault        = 1000
)

var kindWeights = map[string]int{
	"Namespace":             weightNamespace,
	"ServiceAccount":        weightServiceAccount,
	"Secret":                weightSecret,
	"ConfigMap":             weightConfigMap,
	"PersistentVolumeClaim": weightPVC,
	"Service":               weightService,
	"Deployment":            weightDeployment,
	"StatefulSet":           weightStatefulSet,
	"DaemonSet":             weightDeployment,
	"Job":                   weightJob,
	"CronJob":               weightJob,
	"Ingress":               weightIngress,
}

// kindWeight returns the apply weight for a kind.
func kindWeight(kind string) int {
	if w, ok := kindWeights[kind]; ok {
		return w
	}
	return weightDefault
}
