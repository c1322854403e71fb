package kubernetes

import "strings"

// ownershipConflictSignature is the message fragment the API server
// returns when a namespace (or resource) carries ownership metadata from
// a different release or field manager. A previous partial run commonly
// leaves the namespace in this state; the orchestrator recovers by
// deleting the namespace and retrying the apply exactly once.
const ownershipConflictSignature = "invalid ownership metadata"

// IsOwnershipConflict reports whether err is the known
// namespace-ownership failure mode.
func IsOwnershipConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, ownershipConflictSignature) ||
		strings.Contains(msg, "annotation validation error") &&
			strings.Contains(msg, "meta.helm.sh/release-name")
}
