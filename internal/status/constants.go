// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy meter connection.
const HealthOK uint16 = 1

// HealthError represents a failing meter connection.
const HealthError uint16 = 2

// HealthStale represents a connection that stopped producing data.
const HealthStale uint16 = 3

// HealthName returns the wire name for a health code.
func HealthName(code uint16) string {
	switch code {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	}
	return "unknown"
}
