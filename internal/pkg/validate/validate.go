// Package validate provides input validation for API path parameters.
package validate

import (
	"regexp"
	"strings"
)

// K8s name regex: DNS subdomain (RFC 1123), lowercase alphanumeric with '-'
// or '.', max 253 for namespace/name.
var k8sNameRe = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?(\.[a-z0-9]([-a-z0-9]*[a-z0-9])?)*$`)

// Kind validates a Kubernetes resource kind: alphanumeric, no path chars;
// 1–64 chars.
func Kind(kind string) bool {
	if kind == "" || len(kind) > 64 {
		return false
	}
	for _, r := range kind {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

// Namespace validates a namespace: empty (cluster-scoped) or valid DNS
// subdomain.
func Namespace(ns string) bool {
	if ns == "" {
		return true
	}
	if len(ns) > 253 {
		return false
	}
	return k8sNameRe.MatchString(strings.ToLower(ns))
}

// Name validates a resource name: valid DNS subdomain.
func Name(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	return k8sNameRe.MatchString(strings.ToLower(name))
}
