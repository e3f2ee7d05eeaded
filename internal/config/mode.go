package config

// Policy controls how often the interface-up milestone token is shown
type Policy string

const (
	PolicyEdge  Policy = "edge"  // only when the condition becomes true
	PolicyLevel Policy = "level" // every no shutdown while the condition holds
)

// ParsePolicy converts a string to Policy, defaulting to PolicyEdge
func ParsePolicy(s string) Policy {
	switch s {
	case "level":
		return PolicyLevel
	default:
		return PolicyEdge
	}
}

// Valid reports whether p is a known policy
func (p Policy) Valid() bool {
	return p == PolicyEdge || p == PolicyLevel
}
