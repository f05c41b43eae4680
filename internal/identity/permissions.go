package identity

import (
	"fmt"
	"strings"
)

// PermissionBypass is the literal grant that satisfies any required set.
const PermissionBypass = "*"

// InsufficientPermissionError reports every required permission the granted
// set failed to satisfy.
type InsufficientPermissionError struct {
	Missing []string
}

func (e *InsufficientPermissionError) Error() string {
	return fmt.Sprintf("identity: insufficient permission: missing %s", strings.Join(e.Missing, ", "))
}

// Matches reports whether granted satisfies every entry of required.
func Matches(granted, required []string) bool {
	return CheckPermissions(granted, required) == nil
}

// CheckPermissions verifies that each required permission is satisfied by at
// least one granted entry. On failure it returns an
// *InsufficientPermissionError naming the unmet entries. Pure, no I/O.
func CheckPermissions(granted, required []string) error {
	for _, g := range granted {
		if g == PermissionBypass {
			return nil
		}
	}
	var missing []string
	for _, req := range required {
		if !satisfied(granted, req) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &InsufficientPermissionError{Missing: missing}
	}
	return nil
}

func satisfied(granted []string, required string) bool {
	reqResource, reqAction, reqOK := splitPermission(required)
	for _, grant := range granted {
		if grant == required {
			return true
		}
		if !reqOK {
			continue
		}
		resource, action, ok := splitPermission(grant)
		if !ok {
			continue
		}
		if segmentMatches(resource, reqResource) && segmentMatches(action, reqAction) {
			return true
		}
	}
	return false
}

func splitPermission(perm string) (resource, action string, ok bool) {
	parts := strings.SplitN(perm, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func segmentMatches(grant, required string) bool {
	return grant == "*" || grant == required
}
