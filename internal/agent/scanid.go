package agent

import "github.com/google/uuid"

// newScanID mints a fresh scan identifier, grounded on the teacher's use of
// google/uuid for session/request identifiers.
func newScanID() string {
	return "scan-" + uuid.NewString()
}
