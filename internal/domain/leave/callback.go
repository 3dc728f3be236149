package leave

import "strings"

// Callback data carried by the review prompt buttons.
const (
	approvePrefix = "approve_"
	denyPrefix    = "deny_"
)

func ApproveCallback(id string) string { return approvePrefix + id }

func DenyCallback(id string) string { return denyPrefix + id }

// ParseCallback splits button data into the decision and the request id.
func ParseCallback(data string) (approve bool, id string, ok bool) {
	switch {
	case strings.HasPrefix(data, approvePrefix):
		id = strings.TrimPrefix(data, approvePrefix)
		return true, id, id != ""
	case strings.HasPrefix(data, denyPrefix):
		id = strings.TrimPrefix(data, denyPrefix)
		return false, id, id != ""
	}
	return false, "", false
}
