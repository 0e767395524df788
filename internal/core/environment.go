package core

import "strings"

// Environment is the deployment stage the service runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether logs and error payloads must be production-safe.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ExposesErrors reports whether raw error text may be attached to debug channels.
func (e Environment) ExposesErrors() bool {
	return e == Development || e == Testing
}

// ParseEnvironment maps APP_ENV onto a known environment. Anything unknown is
// treated as development so a fresh checkout boots without configuration.
func ParseEnvironment(v string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(v))) {
	case Production, "prod":
		return Production
	case Staging:
		return Staging
	case Testing, "test":
		return Testing
	default:
		return Development
	}
}
